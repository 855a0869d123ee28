package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/chat/internal/model"
	"basegraph.app/chat/internal/service"
	"basegraph.app/chat/internal/store"
)

var _ = Describe("LedgerService", func() {
	var (
		ctx    context.Context
		h      *harness
		ledger service.LedgerService
	)

	BeforeEach(func() {
		ctx = context.Background()
		h = newHarness("u1", "u2", "u3")
		ledger = h.services.Ledger()
	})

	Describe("Send", func() {
		It("stores the message with fresh flags and publishes it", func() {
			msg, err := ledger.Send(ctx, service.SendParams{SenderID: "u1", ReceiverID: "u2", Content: "hi"})

			Expect(err).NotTo(HaveOccurred())
			Expect(msg.ID).NotTo(BeEmpty())
			Expect(msg.Kind()).To(Equal(model.MessageKindText))
			Expect(msg.IsRead).To(BeFalse())
			Expect(msg.IsDone).To(BeFalse())
			Expect(msg.IsEdited).To(BeFalse())
			Expect(msg.Version).To(Equal(int64(1)))
			Expect(msg.Timestamp).To(BeTemporally("~", time.Now(), time.Second))
			Expect(h.sink.Types()).To(Equal([]model.EventType{model.EventMessageCreated}))

			stored, err := h.stores.Messages().GetByID(ctx, msg.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Content).To(Equal("hi"))
		})

		It("bumps the receiver's unread counter but not the sender's", func() {
			h.send("u1", "u2", "hi")

			Expect(h.unreadOf("u2")).To(Equal(int64(1)))
			Expect(h.unreadOf("u1")).To(BeZero())
		})

		It("bumps every user except the sender for broadcasts", func() {
			h.send("u1", model.ReceiverAll, "standup")

			Expect(h.unreadOf("u1")).To(BeZero())
			Expect(h.unreadOf("u2")).To(Equal(int64(1)))
			Expect(h.unreadOf("u3")).To(Equal(int64(1)))
		})

		It("uses a caller supplied id and rejects duplicates with a ConflictError", func() {
			params := service.SendParams{ID: "client-1", SenderID: "u1", ReceiverID: "u2", Content: "hi"}
			msg, err := ledger.Send(ctx, params)
			Expect(err).NotTo(HaveOccurred())
			Expect(msg.ID).To(Equal("client-1"))

			_, err = ledger.Send(ctx, params)
			Expect(errors.Is(err, service.ErrConflict)).To(BeTrue())
			var conflict *service.ConflictError
			Expect(errors.As(err, &conflict)).To(BeTrue())
			Expect(conflict.ID).To(Equal("client-1"))
		})

		DescribeTable("rejects invalid input without storing anything",
			func(params service.SendParams, field string) {
				_, err := ledger.Send(ctx, params)

				var verr *service.ValidationError
				Expect(errors.As(err, &verr)).To(BeTrue())
				Expect(verr.Field).To(Equal(field))
				Expect(errors.Is(err, service.ErrValidation)).To(BeTrue())
				Expect(h.sink.Types()).To(BeEmpty())
			},
			Entry("empty text", service.SendParams{SenderID: "u1", ReceiverID: "u2", Content: "  "}, "content"),
			Entry("empty receiver", service.SendParams{SenderID: "u1", Content: "hi"}, "receiver_id"),
			Entry("empty sender", service.SendParams{ReceiverID: "u2", Content: "hi"}, "sender_id"),
			Entry("file without url", service.SendParams{SenderID: "u1", ReceiverID: "u2", Kind: model.MessageKindFile}, "type"),
			Entry("unknown kind", service.SendParams{SenderID: "u1", ReceiverID: "u2", Kind: "sticker", Content: "x"}, "type"),
		)

		It("accepts an attachment without caption", func() {
			msg, err := ledger.Send(ctx, service.SendParams{
				SenderID:   "u1",
				ReceiverID: "u2",
				Kind:       model.MessageKindVoice,
				Attachment: model.Attachment{URL: "https://cdn/v.ogg", FileName: "v.ogg"},
			})
			Expect(err).NotTo(HaveOccurred())
			att, ok := model.AttachmentOf(msg.Body)
			Expect(ok).To(BeTrue())
			Expect(att.URL).To(Equal("https://cdn/v.ogg"))
		})

		It("still succeeds when unread counters fail", func() {
			presence := &mockPresence{deliveredFn: func(context.Context, *model.Message) error {
				return errors.New("redis down")
			}}
			l := service.NewLedgerService(h.stores.Messages(), service.NewMemoryTxRunner(h.stores),
				h.services.Index(), presence, h.sink, nil)

			msg, err := l.Send(ctx, service.SendParams{SenderID: "u1", ReceiverID: "u2", Content: "hi"})
			Expect(err).NotTo(HaveOccurred())
			Expect(presence.delivered).To(ConsistOf(msg.ID))
		})

		It("wraps unexpected store errors", func() {
			boom := errors.New("connection reset")
			messages := &mockMessageStore{createFn: func(context.Context, *model.Message) error { return boom }}
			l := service.NewLedgerService(messages, nil, nil, nil, nil, nil)

			_, err := l.Send(ctx, service.SendParams{SenderID: "u1", ReceiverID: "u2", Content: "hi"})
			Expect(err).To(MatchError(ContainSubstring("creating message")))
			Expect(errors.Is(err, boom)).To(BeTrue())
		})
	})

	Describe("Edit", func() {
		It("replaces the content and marks the message edited without touching the timestamp", func() {
			orig := h.send("u1", "u2", "helo")

			edited, err := ledger.Edit(ctx, orig.ID, "hello")
			Expect(err).NotTo(HaveOccurred())
			Expect(edited.Content).To(Equal("hello"))
			Expect(edited.IsEdited).To(BeTrue())
			Expect(edited.Version).To(Equal(orig.Version + 1))
			Expect(edited.Timestamp).To(Equal(orig.Timestamp))
			Expect(edited.Kind()).To(Equal(model.MessageKindText))
			Expect(h.sink.Types()).To(ContainElement(model.EventMessageEdited))
		})

		It("does not cascade to a task created from the message", func() {
			orig := h.send("u1", "u2", "ship it")
			task, err := h.services.Index().CreateTaskFromMessage(ctx, orig.ID, service.TaskParams{})
			Expect(err).NotTo(HaveOccurred())

			_, err = ledger.Edit(ctx, orig.ID, "ship it tomorrow")
			Expect(err).NotTo(HaveOccurred())

			stored, err := h.stores.Tasks().GetByID(ctx, task.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Title).To(Equal("ship it"))
		})

		It("returns NotFoundError for an unknown message", func() {
			_, err := ledger.Edit(ctx, "missing", "x")
			Expect(errors.Is(err, service.ErrNotFound)).To(BeTrue())
		})

		It("rejects emptying a text message", func() {
			orig := h.send("u1", "u2", "hi")
			_, err := ledger.Edit(ctx, orig.ID, "")
			Expect(errors.Is(err, service.ErrValidation)).To(BeTrue())
		})
	})

	Describe("Delete", func() {
		It("removes the message together with its tasks and polls", func() {
			msg := h.send("u1", "u2", "lunch?")
			task, err := h.services.Index().CreateTaskFromMessage(ctx, msg.ID, service.TaskParams{})
			Expect(err).NotTo(HaveOccurred())
			poll, err := h.services.Index().CreatePollFromMessage(ctx, msg.ID, service.PollParams{
				Question: "where", Options: []string{"a", "b"}, CreatedBy: "u1",
			})
			Expect(err).NotTo(HaveOccurred())
			h.sink.Reset()

			Expect(ledger.Delete(ctx, msg.ID)).To(Succeed())

			_, err = h.stores.Messages().GetByID(ctx, msg.ID)
			Expect(err).To(MatchError(store.ErrNotFound))
			_, err = h.stores.Tasks().GetByID(ctx, task.ID)
			Expect(err).To(MatchError(store.ErrNotFound))
			_, err = h.stores.Polls().GetByID(ctx, poll.ID)
			Expect(err).To(MatchError(store.ErrNotFound))
			Expect(h.sink.Types()).To(Equal([]model.EventType{model.EventTaskDeleted, model.EventMessageDeleted}))
		})

		It("is a silent no-op for an absent message", func() {
			Expect(ledger.Delete(ctx, "missing")).To(Succeed())
			Expect(h.sink.Types()).To(BeEmpty())
		})

		It("leaves unread counters as they were", func() {
			msg := h.send("u1", "u2", "oops")
			Expect(ledger.Delete(ctx, msg.ID)).To(Succeed())
			Expect(h.unreadOf("u2")).To(Equal(int64(1)))
		})
	})

	Describe("ToggleStatus", func() {
		It("flips read and done independently", func() {
			msg := h.send("u1", "u2", "todo")

			read, err := ledger.ToggleStatus(ctx, msg.ID, model.StatusFlagRead)
			Expect(err).NotTo(HaveOccurred())
			Expect(read.IsRead).To(BeTrue())
			Expect(read.IsDone).To(BeFalse())

			done, err := ledger.ToggleStatus(ctx, msg.ID, model.StatusFlagDone)
			Expect(err).NotTo(HaveOccurred())
			Expect(done.IsRead).To(BeTrue())
			Expect(done.IsDone).To(BeTrue())

			again, err := ledger.ToggleStatus(ctx, msg.ID, model.StatusFlagRead)
			Expect(err).NotTo(HaveOccurred())
			Expect(again.IsRead).To(BeFalse())
		})

		It("loses no toggles under concurrency", func() {
			msg := h.send("u1", "u2", "race")

			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					_, err := ledger.ToggleStatus(ctx, msg.ID, model.StatusFlagDone)
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			wg.Wait()

			stored, err := h.stores.Messages().GetByID(ctx, msg.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.IsDone).To(BeFalse())
			Expect(stored.Version).To(Equal(int64(21)))
		})

		It("rejects unknown flags and missing messages", func() {
			msg := h.send("u1", "u2", "x")
			_, err := ledger.ToggleStatus(ctx, msg.ID, "pinned")
			Expect(errors.Is(err, service.ErrValidation)).To(BeTrue())

			_, err = ledger.ToggleStatus(ctx, "missing", model.StatusFlagRead)
			Expect(errors.Is(err, service.ErrNotFound)).To(BeTrue())
		})
	})

	Describe("Query", func() {
		It("returns the pair in either direction plus broadcasts in order", func() {
			m1 := h.send("u1", "u2", "one")
			m2 := h.send("u2", "u1", "two")
			h.send("u1", "u3", "elsewhere")
			m4 := h.send("u3", model.ReceiverAll, "everyone")

			msgs, err := ledger.Query(ctx, "u2", "u1", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(msgs)).To(Equal([]string{m1.ID, m2.ID, m4.ID}))
		})

		It("applies the project filter", func() {
			project := "p1"
			_, err := ledger.Send(ctx, service.SendParams{SenderID: "u1", ReceiverID: "u2", Content: "tagged", ProjectID: &project})
			Expect(err).NotTo(HaveOccurred())
			h.send("u1", "u2", "untagged")

			msgs, err := ledger.Query(ctx, "u1", "u2", &project)
			Expect(err).NotTo(HaveOccurred())
			Expect(msgs).To(HaveLen(1))
			Expect(msgs[0].Content).To(Equal("tagged"))
		})

		It("returns an empty slice for a quiet pair", func() {
			msgs, err := ledger.Query(ctx, "u1", "u2", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(msgs).NotTo(BeNil())
			Expect(msgs).To(BeEmpty())
		})
	})
})

func ids(msgs []model.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}
