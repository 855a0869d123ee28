package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/chat/internal/http/handler"
	"basegraph.app/chat/internal/http/middleware"
	"basegraph.app/chat/internal/model"
	"basegraph.app/chat/internal/service"
)

type staticTokens map[string]string

func (s staticTokens) ValidateToken(token string) (string, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return "", service.ErrInvalidToken
}

func jsonRequest(method, path string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

var _ = Describe("MessageHandler", func() {
	var (
		router *gin.Engine
		svc    *mockLedgerService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		router.Use(middleware.Bearer(staticTokens{"alice-token": "alice"}, false))
		svc = &mockLedgerService{}
		h := handler.NewMessageHandler(svc)
		router.GET("/messages", h.List)
		router.POST("/messages", h.Send)
		router.PATCH("/messages/:id", h.Edit)
		router.DELETE("/messages/:id", h.Delete)
		router.POST("/messages/:id/toggle", h.ToggleStatus)
	})

	Describe("Send", func() {
		It("returns 201 with the stored message", func() {
			var got service.SendParams
			svc.sendFn = func(_ context.Context, p service.SendParams) (*model.Message, error) {
				got = p
				return &model.Message{ID: "m1", SenderID: p.SenderID, ReceiverID: p.ReceiverID, Content: p.Content, Version: 1}, nil
			}

			w := serve(router, jsonRequest(http.MethodPost, "/messages", map[string]any{
				"sender_id":   "alice",
				"receiver_id": "bob",
				"content":     "hi",
			}))

			Expect(w.Code).To(Equal(http.StatusCreated))
			Expect(got.SenderID).To(Equal("alice"))
			Expect(got.ReceiverID).To(Equal("bob"))

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["id"]).To(Equal("m1"))
			Expect(resp["content"]).To(Equal("hi"))
		})

		It("maps file fields into the attachment", func() {
			var got service.SendParams
			svc.sendFn = func(_ context.Context, p service.SendParams) (*model.Message, error) {
				got = p
				return &model.Message{ID: "m2"}, nil
			}

			w := serve(router, jsonRequest(http.MethodPost, "/messages", map[string]any{
				"sender_id":   "alice",
				"receiver_id": "all",
				"type":        "file",
				"file_url":    "https://files.example.com/a.pdf",
				"file_name":   "a.pdf",
			}))

			Expect(w.Code).To(Equal(http.StatusCreated))
			Expect(got.Kind).To(Equal(model.MessageKindFile))
			Expect(got.Attachment).To(Equal(model.Attachment{URL: "https://files.example.com/a.pdf", FileName: "a.pdf"}))
		})

		It("fills the sender from the bearer token", func() {
			var got service.SendParams
			svc.sendFn = func(_ context.Context, p service.SendParams) (*model.Message, error) {
				got = p
				return &model.Message{ID: "m3"}, nil
			}

			req := jsonRequest(http.MethodPost, "/messages", map[string]any{"receiver_id": "bob", "content": "hi"})
			req.Header.Set("Authorization", "Bearer alice-token")

			Expect(serve(router, req).Code).To(Equal(http.StatusCreated))
			Expect(got.SenderID).To(Equal("alice"))
		})

		It("returns 403 when the sender does not match the token", func() {
			req := jsonRequest(http.MethodPost, "/messages", map[string]any{
				"sender_id":   "mallory",
				"receiver_id": "bob",
				"content":     "hi",
			})
			req.Header.Set("Authorization", "Bearer alice-token")

			Expect(serve(router, req).Code).To(Equal(http.StatusForbidden))
		})

		It("returns 400 on an unknown message type", func() {
			w := serve(router, jsonRequest(http.MethodPost, "/messages", map[string]any{
				"sender_id":   "alice",
				"receiver_id": "bob",
				"type":        "sticker",
			}))
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		DescribeTable("maps service errors to status codes",
			func(err error, code int) {
				svc.sendFn = func(context.Context, service.SendParams) (*model.Message, error) {
					return nil, err
				}
				w := serve(router, jsonRequest(http.MethodPost, "/messages", map[string]any{
					"sender_id":   "alice",
					"receiver_id": "bob",
					"content":     "hi",
				}))
				Expect(w.Code).To(Equal(code))
			},
			Entry("validation", &service.ValidationError{Field: "content", Reason: "must not be empty"}, http.StatusBadRequest),
			Entry("not found", &service.NotFoundError{Entity: "user", ID: "bob"}, http.StatusNotFound),
			Entry("conflict", &service.ConflictError{Entity: "message", ID: "m1"}, http.StatusConflict),
			Entry("wrapped not found", fmt.Errorf("send: %w", &service.NotFoundError{Entity: "task", ID: "t1"}), http.StatusNotFound),
			Entry("unexpected", errors.New("boom"), http.StatusInternalServerError),
		)
	})

	Describe("List", func() {
		It("requires both participants", func() {
			w := serve(router, httptest.NewRequest(http.MethodGet, "/messages?sender_id=alice", nil))
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("passes the project filter through", func() {
			var gotProject *string
			svc.queryFn = func(_ context.Context, a, b string, projectID *string) ([]model.Message, error) {
				gotProject = projectID
				return []model.Message{{ID: "m1", SenderID: a, ReceiverID: b}}, nil
			}

			w := serve(router, httptest.NewRequest(http.MethodGet, "/messages?sender_id=alice&receiver_id=bob&project_id=p1", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(gotProject).NotTo(BeNil())
			Expect(*gotProject).To(Equal("p1"))

			var resp struct {
				Messages []map[string]any `json:"messages"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Messages).To(HaveLen(1))
		})
	})

	Describe("Edit", func() {
		It("returns 404 for an unknown message", func() {
			svc.editFn = func(_ context.Context, id, _ string) (*model.Message, error) {
				return nil, &service.NotFoundError{Entity: "message", ID: id}
			}
			w := serve(router, jsonRequest(http.MethodPatch, "/messages/nope", map[string]any{"content": "x"}))
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("Delete", func() {
		It("returns 204", func() {
			var deleted string
			svc.deleteFn = func(_ context.Context, id string) error {
				deleted = id
				return nil
			}
			w := serve(router, httptest.NewRequest(http.MethodDelete, "/messages/m1", nil))
			Expect(w.Code).To(Equal(http.StatusNoContent))
			Expect(deleted).To(Equal("m1"))
		})
	})

	Describe("ToggleStatus", func() {
		It("rejects unknown fields", func() {
			w := serve(router, jsonRequest(http.MethodPost, "/messages/m1/toggle", map[string]any{"field": "pinned"}))
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("toggles the requested flag", func() {
			var gotFlag model.StatusFlag
			svc.toggleStatusFn = func(_ context.Context, id string, flag model.StatusFlag) (*model.Message, error) {
				gotFlag = flag
				return &model.Message{ID: id, IsDone: true}, nil
			}
			w := serve(router, jsonRequest(http.MethodPost, "/messages/m1/toggle", map[string]any{"field": "done"}))
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(gotFlag).To(Equal(model.StatusFlagDone))
		})
	})
})
