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
)

var _ = Describe("IndexService", func() {
	var (
		ctx   context.Context
		h     *harness
		index service.IndexService
	)

	BeforeEach(func() {
		ctx = context.Background()
		h = newHarness("u1", "u2", "u3")
		index = h.services.Index()
	})

	Describe("CreateTaskFromMessage", func() {
		It("snapshots the message content and inherits its project", func() {
			project := "p1"
			msg, err := h.services.Ledger().Send(ctx, service.SendParams{
				SenderID: "u1", ReceiverID: "u2", Content: "write release notes", ProjectID: &project,
			})
			Expect(err).NotTo(HaveOccurred())
			due := time.Now().Add(48 * time.Hour)

			task, err := index.CreateTaskFromMessage(ctx, msg.ID, service.TaskParams{
				AssignedTo: []string{"u2", "u3"},
				DueAt:      &due,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(task.Title).To(Equal("write release notes"))
			Expect(task.Completed).To(BeFalse())
			Expect(task.AssignedTo).To(Equal([]string{"u2", "u3"}))
			Expect(*task.MessageID).To(Equal(msg.ID))
			Expect(*task.ProjectID).To(Equal("p1"))
			Expect(h.sink.Types()).To(ContainElement(model.EventTaskCreated))
		})

		It("returns NotFoundError for a missing message", func() {
			_, err := index.CreateTaskFromMessage(ctx, "missing", service.TaskParams{})
			var nf *service.NotFoundError
			Expect(errors.As(err, &nf)).To(BeTrue())
			Expect(nf.Entity).To(Equal("message"))
		})
	})

	Describe("tasks", func() {
		It("toggles, filters and deletes", func() {
			a, err := index.CreateTaskFromMessage(ctx, h.send("u1", "u2", "a").ID, service.TaskParams{})
			Expect(err).NotTo(HaveOccurred())
			b, err := index.CreateTaskFromMessage(ctx, h.send("u1", "u2", "b").ID, service.TaskParams{})
			Expect(err).NotTo(HaveOccurred())

			toggled, err := index.ToggleTaskComplete(ctx, a.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(toggled.Completed).To(BeTrue())

			active, err := index.ListTasks(ctx, model.TaskFilterActive)
			Expect(err).NotTo(HaveOccurred())
			Expect(active).To(HaveLen(1))
			Expect(active[0].ID).To(Equal(b.ID))

			completed, err := index.ListTasks(ctx, model.TaskFilterCompleted)
			Expect(err).NotTo(HaveOccurred())
			Expect(completed).To(HaveLen(1))
			Expect(completed[0].ID).To(Equal(a.ID))

			Expect(index.DeleteTask(ctx, a.ID)).To(Succeed())
			Expect(index.DeleteTask(ctx, a.ID)).To(Succeed())
			all, err := index.ListTasks(ctx, model.TaskFilterAll)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))

			_, err = index.ToggleTaskComplete(ctx, a.ID)
			Expect(errors.Is(err, service.ErrNotFound)).To(BeTrue())
		})
	})

	Describe("polls", func() {
		var poll *model.Poll

		BeforeEach(func() {
			var err error
			poll, err = index.CreatePollFromMessage(ctx, h.send("u1", model.ReceiverAll, "lunch").ID, service.PollParams{
				Question:  "Where to?",
				Options:   []string{"pizza", "sushi", " "},
				CreatedBy: "u1",
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("creates one option per non-blank text with no votes", func() {
			Expect(poll.Options).To(HaveLen(2))
			for _, opt := range poll.Options {
				Expect(opt.Votes).To(BeEmpty())
			}
		})

		It("keeps at most one vote per user and moves it on revote", func() {
			first, second := poll.Options[0].ID, poll.Options[1].ID

			_, err := index.Vote(ctx, poll.ID, first, "u2")
			Expect(err).NotTo(HaveOccurred())
			updated, err := index.Vote(ctx, poll.ID, second, "u2")
			Expect(err).NotTo(HaveOccurred())

			Expect(updated.Options[0].Votes).To(BeEmpty())
			Expect(updated.Options[1].Votes).To(Equal([]string{"u2"}))
		})

		It("is idempotent for a repeated vote", func() {
			first := poll.Options[0].ID
			_, err := index.Vote(ctx, poll.ID, first, "u2")
			Expect(err).NotTo(HaveOccurred())
			updated, err := index.Vote(ctx, poll.ID, first, "u2")
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Options[0].Votes).To(Equal([]string{"u2"}))
		})

		It("holds the one-vote rule under concurrent votes", func() {
			var wg sync.WaitGroup
			for i := 0; i < 10; i++ {
				opt := poll.Options[i%2].ID
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					_, err := index.Vote(ctx, poll.ID, opt, "u3")
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			wg.Wait()

			got, err := index.GetPoll(ctx, poll.ID)
			Expect(err).NotTo(HaveOccurred())
			total := len(got.Options[0].Votes) + len(got.Options[1].Votes)
			Expect(total).To(Equal(1))
		})

		It("returns NotFoundError for unknown polls and options", func() {
			_, err := index.Vote(ctx, "missing", poll.Options[0].ID, "u2")
			var nf *service.NotFoundError
			Expect(errors.As(err, &nf)).To(BeTrue())
			Expect(nf.Entity).To(Equal("poll"))

			_, err = index.Vote(ctx, poll.ID, "missing", "u2")
			Expect(errors.As(err, &nf)).To(BeTrue())
			Expect(nf.Entity).To(Equal("option"))
		})

		It("rejects votes after the poll ends", func() {
			ended := time.Now().Add(-time.Minute)
			closed, err := index.CreatePollFromMessage(ctx, h.send("u1", "u2", "late").ID, service.PollParams{
				Question: "q", Options: []string{"a", "b"}, CreatedBy: "u1", EndAt: &ended,
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = index.Vote(ctx, closed.ID, closed.Options[0].ID, "u2")
			Expect(errors.Is(err, service.ErrValidation)).To(BeTrue())
		})

		It("validates question and options", func() {
			msg := h.send("u1", "u2", "x")
			_, err := index.CreatePollFromMessage(ctx, msg.ID, service.PollParams{Question: "", Options: []string{"a", "b"}, CreatedBy: "u1"})
			Expect(errors.Is(err, service.ErrValidation)).To(BeTrue())
			_, err = index.CreatePollFromMessage(ctx, msg.ID, service.PollParams{Question: "q", Options: []string{"a"}, CreatedBy: "u1"})
			Expect(errors.Is(err, service.ErrValidation)).To(BeTrue())
			_, err = index.CreatePollFromMessage(ctx, "missing", service.PollParams{Question: "q", Options: []string{"a", "b"}, CreatedBy: "u1"})
			Expect(errors.Is(err, service.ErrNotFound)).To(BeTrue())
		})

		It("lists polls", func() {
			polls, err := index.ListPolls(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(polls).To(HaveLen(1))
			Expect(polls[0].Question).To(Equal("Where to?"))
		})
	})

	Describe("OnMessageDeleted", func() {
		It("removes only entities derived from that message", func() {
			keep := h.send("u1", "u2", "keep")
			drop := h.send("u1", "u2", "drop")
			kept, err := index.CreateTaskFromMessage(ctx, keep.ID, service.TaskParams{})
			Expect(err).NotTo(HaveOccurred())
			dropped, err := index.CreateTaskFromMessage(ctx, drop.ID, service.TaskParams{})
			Expect(err).NotTo(HaveOccurred())

			refs, err := index.OnMessageDeleted(ctx, h.stores, drop.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(refs.TaskIDs).To(Equal([]string{dropped.ID}))
			Expect(refs.PollIDs).To(BeEmpty())

			all, err := index.ListTasks(ctx, model.TaskFilterAll)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
			Expect(all[0].ID).To(Equal(kept.ID))
		})
	})
})
