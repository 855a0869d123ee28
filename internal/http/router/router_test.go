package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"

	"basegraph.app/chat/common/id"
	"basegraph.app/chat/core/config"
	"basegraph.app/chat/internal/http/router"
	"basegraph.app/chat/internal/service"
	"basegraph.app/chat/internal/store"
)

const adminKey = "admin-key"

var _ = Describe("SetupRoutes", func() {
	var engine *gin.Engine

	do := func(method, path string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Admin-API-Key", adminKey)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		return w
	}

	decode := func(w *httptest.ResponseRecorder, v any) {
		Expect(json.Unmarshal(w.Body.Bytes(), v)).To(Succeed())
	}

	BeforeEach(func() {
		Expect(id.Init(1)).To(Succeed())
		gin.SetMode(gin.TestMode)

		stores := store.NewMemoryStores()
		services := service.NewServices(
			stores,
			service.NewMemoryTxRunner(stores),
			store.NewMemoryUnreadCounter(),
			nil,
			config.AuthConfig{JWTSecret: "test-secret"},
		)

		engine = gin.New()
		router.SetupRoutes(engine, services, router.RouterConfig{
			AdminAPIKey:    adminKey,
			RateLimitRPS:   1000,
			RateLimitBurst: 1000,
			Gatherer:       prometheus.NewRegistry(),
		})

		for _, name := range []string{"alice", "bob"} {
			w := do(http.MethodPost, "/api/v1/admin/users", map[string]any{"id": name, "name": name})
			Expect(w.Code).To(Equal(http.StatusCreated), w.Body.String())
		}
	})

	It("serves health and metrics", func() {
		Expect(do(http.MethodGet, "/health", nil).Code).To(Equal(http.StatusOK))
		Expect(do(http.MethodGet, "/metrics", nil).Code).To(Equal(http.StatusOK))
	})

	It("rejects seeding with a bad admin key", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/projects", bytes.NewBufferString(`{"name":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Admin-API-Key", "nope")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("runs a conversation end to end", func() {
		w := do(http.MethodPost, "/api/v1/messages", map[string]any{
			"sender_id":   "alice",
			"receiver_id": "bob",
			"content":     "write the release notes",
		})
		Expect(w.Code).To(Equal(http.StatusCreated), w.Body.String())
		var msg struct {
			ID      string `json:"id"`
			Version int64  `json:"version"`
		}
		decode(w, &msg)
		Expect(msg.ID).NotTo(BeEmpty())

		var users struct {
			Users []struct {
				ID     string `json:"id"`
				Unread int64  `json:"unread_messages"`
			} `json:"users"`
		}
		decode(do(http.MethodGet, "/api/v1/users", nil), &users)
		unread := map[string]int64{}
		for _, u := range users.Users {
			unread[u.ID] = u.Unread
		}
		Expect(unread).To(Equal(map[string]int64{"alice": 0, "bob": 1}))

		Expect(do(http.MethodPost, "/api/v1/users/bob/unread/reset", nil).Code).To(Equal(http.StatusNoContent))

		w = do(http.MethodPost, "/api/v1/messages/"+msg.ID+"/tasks", map[string]any{"assigned_to": []string{"bob"}})
		Expect(w.Code).To(Equal(http.StatusCreated), w.Body.String())

		var tasks struct {
			Tasks []map[string]any `json:"tasks"`
		}
		decode(do(http.MethodGet, "/api/v1/tasks?filter=active", nil), &tasks)
		Expect(tasks.Tasks).To(HaveLen(1))

		var conv struct {
			Messages []map[string]any `json:"messages"`
		}
		decode(do(http.MethodGet, "/api/v1/messages?sender_id=bob&receiver_id=alice", nil), &conv)
		Expect(conv.Messages).To(HaveLen(1))

		Expect(do(http.MethodDelete, "/api/v1/messages/"+msg.ID, nil).Code).To(Equal(http.StatusNoContent))
		Expect(do(http.MethodDelete, "/api/v1/messages/"+msg.ID, nil).Code).To(Equal(http.StatusNoContent))

		decode(do(http.MethodGet, "/api/v1/tasks", nil), &tasks)
		Expect(tasks.Tasks).To(BeEmpty())
	})

	It("rejects an empty text message", func() {
		w := do(http.MethodPost, "/api/v1/messages", map[string]any{
			"sender_id":   "alice",
			"receiver_id": "bob",
			"content":     "   ",
		})
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("returns 409 on a duplicate client id", func() {
		body := map[string]any{"id": "fixed", "sender_id": "alice", "receiver_id": "bob", "content": "once"}
		Expect(do(http.MethodPost, "/api/v1/messages", body).Code).To(Equal(http.StatusCreated))
		Expect(do(http.MethodPost, "/api/v1/messages", body).Code).To(Equal(http.StatusConflict))
	})

	It("registers and logs in", func() {
		w := do(http.MethodPost, "/auth/register", map[string]any{
			"name":     "Dana",
			"email":    "dana@example.com",
			"password": "long enough pw",
		})
		Expect(w.Code).To(Equal(http.StatusCreated), w.Body.String())

		w = do(http.MethodPost, "/auth/login", map[string]any{
			"email":    "dana@example.com",
			"password": "long enough pw",
		})
		Expect(w.Code).To(Equal(http.StatusOK))
		var resp struct {
			Token string `json:"token"`
		}
		decode(w, &resp)
		Expect(resp.Token).NotTo(BeEmpty())
	})
})
