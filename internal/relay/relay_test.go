package relay_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"

	"basegraph.app/chat/internal/model"
	"basegraph.app/chat/internal/relay"
)

type fakeTokens map[string]string

func (f fakeTokens) ValidateToken(token string) (string, error) {
	if uid, ok := f[token]; ok {
		return uid, nil
	}
	return "", errors.New("bad token")
}

type frameEnvelope struct {
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message"`
}

var _ = Describe("Relay", func() {
	var (
		hub    *relay.Hub
		server *httptest.Server
		reg    *prometheus.Registry
		cfg    relay.Config
		hcfg   relay.HandlerConfig
	)

	start := func() {
		reg = prometheus.NewRegistry()
		hub = relay.NewHub(cfg, relay.NewMetrics(reg))
		gin.SetMode(gin.TestMode)
		r := gin.New()
		r.GET("/ws", relay.NewHandler(hub, fakeTokens{"tok-u1": "u1"}, hcfg).ServeWS)
		server = httptest.NewServer(r)
	}

	dial := func(query string) *websocket.Conn {
		url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?" + query
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		Expect(err).NotTo(HaveOccurred())
		return conn
	}

	read := func(conn *websocket.Conn) frameEnvelope {
		Expect(conn.SetReadDeadline(time.Now().Add(2 * time.Second))).To(Succeed())
		_, data, err := conn.ReadMessage()
		Expect(err).NotTo(HaveOccurred())
		var f frameEnvelope
		Expect(json.Unmarshal(data, &f)).To(Succeed())
		return f
	}

	expectSilence := func(conn *websocket.Conn) {
		Expect(conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))).To(Succeed())
		_, _, err := conn.ReadMessage()
		Expect(err).To(HaveOccurred())
	}

	BeforeEach(func() {
		cfg = relay.Config{SendBuffer: 64}
		hcfg = relay.HandlerConfig{}
	})

	AfterEach(func() {
		hub.Close()
		server.Close()
	})

	Context("with default broadcast", func() {
		BeforeEach(start)

		It("delivers published events to every session", func() {
			a := dial("user_id=u1")
			defer a.Close()
			b := dial("user_id=u2")
			defer b.Close()
			Eventually(hub.Len).Should(Equal(2))

			msg := &model.Message{ID: "m1", SenderID: "u1", ReceiverID: "u2", Content: "hi", Body: model.TextBody{}, Version: 1}
			hub.Publish(context.Background(), model.Event{Type: model.EventMessageCreated, Message: msg})

			for _, conn := range []*websocket.Conn{a, b} {
				f := read(conn)
				Expect(f.Type).To(Equal("receive_message"))
				var got model.Message
				Expect(json.Unmarshal(f.Message, &got)).To(Succeed())
				Expect(got.ID).To(Equal("m1"))
			}
			Expect(gathered(reg, "chat_relay_delivered_total")).To(Equal(2.0))
		})

		It("forwards send_message verbatim to everyone including the sender", func() {
			a := dial("user_id=u1")
			defer a.Close()
			b := dial("user_id=u2")
			defer b.Close()
			Eventually(hub.Len).Should(Equal(2))

			payload := `{"id":"x1","sender_id":"u1","receiver_id":"u2","content":"yo","extra":42}`
			Expect(a.WriteMessage(websocket.TextMessage, []byte(`{"type":"send_message","message":`+payload+`}`))).To(Succeed())

			for _, conn := range []*websocket.Conn{a, b} {
				f := read(conn)
				Expect(f.Type).To(Equal("receive_message"))
				Expect(f.Message).To(MatchJSON(payload))
			}
		})

		It("keeps one sender's frames in order", func() {
			a := dial("user_id=u1")
			defer a.Close()
			b := dial("user_id=u2")
			defer b.Close()
			Eventually(hub.Len).Should(Equal(2))

			const n = 30
			for i := 0; i < n; i++ {
				frame := fmt.Sprintf(`{"type":"send_message","message":{"id":"m%d","sender_id":"u1","receiver_id":"u2"}}`, i)
				Expect(a.WriteMessage(websocket.TextMessage, []byte(frame))).To(Succeed())
			}
			for i := 0; i < n; i++ {
				var got struct {
					ID string `json:"id"`
				}
				Expect(json.Unmarshal(read(b).Message, &got)).To(Succeed())
				Expect(got.ID).To(Equal(fmt.Sprintf("m%d", i)))
			}
		})

		It("ignores malformed and unknown frames", func() {
			a := dial("user_id=u1")
			defer a.Close()
			Eventually(hub.Len).Should(Equal(1))

			Expect(a.WriteMessage(websocket.TextMessage, []byte(`not json`))).To(Succeed())
			Expect(a.WriteMessage(websocket.TextMessage, []byte(`{"type":"typing"}`))).To(Succeed())
			expectSilence(a)
		})

		It("removes a session on disconnect", func() {
			a := dial("user_id=u1")
			Eventually(hub.Len).Should(Equal(1))
			Expect(a.Close()).To(Succeed())
			Eventually(hub.Len).Should(BeZero())
		})

		It("takes the user from a valid token and rejects a bad one", func() {
			resp, err := http.Get(server.URL + "/ws?token=nope")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))

			conn := dial("token=tok-u1")
			defer conn.Close()
			Eventually(hub.Len).Should(Equal(1))
		})
	})

	Context("with receiver filtering", func() {
		BeforeEach(func() {
			cfg.FilterByReceiver = true
			start()
		})

		It("limits direct messages to their participants but not broadcasts", func() {
			a := dial("user_id=u1")
			defer a.Close()
			b := dial("user_id=u2")
			defer b.Close()
			c := dial("user_id=u3")
			defer c.Close()
			Eventually(hub.Len).Should(Equal(3))

			direct := &model.Message{ID: "m1", SenderID: "u1", ReceiverID: "u2", Content: "psst", Body: model.TextBody{}}
			hub.Publish(context.Background(), model.Event{Type: model.EventMessageCreated, Message: direct})
			all := &model.Message{ID: "m2", SenderID: "u1", ReceiverID: model.ReceiverAll, Content: "hey", Body: model.TextBody{}}
			hub.Publish(context.Background(), model.Event{Type: model.EventMessageCreated, Message: all})

			idOf := func(f frameEnvelope) string {
				var m model.Message
				Expect(json.Unmarshal(f.Message, &m)).To(Succeed())
				return m.ID
			}
			Expect(idOf(read(a))).To(Equal("m1"))
			Expect(idOf(read(b))).To(Equal("m1"))
			Expect(idOf(read(c))).To(Equal("m2"))
			Expect(idOf(read(a))).To(Equal("m2"))
		})
	})

	Context("when authentication is required", func() {
		BeforeEach(func() {
			hcfg.RequireAuth = true
			start()
		})

		It("rejects handshakes without a token", func() {
			resp, err := http.Get(server.URL + "/ws?user_id=u1")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})
	})
})

func gathered(reg *prometheus.Registry, name string) float64 {
	families, err := reg.Gather()
	Expect(err).NotTo(HaveOccurred())
	for _, f := range families {
		if f.GetName() == name && len(f.GetMetric()) > 0 {
			return f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}
