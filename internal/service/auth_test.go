package service_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/chat/core/config"
	"basegraph.app/chat/internal/service"
)

var _ = Describe("AuthService", func() {
	var (
		ctx  context.Context
		h    *harness
		auth service.AuthService
	)

	BeforeEach(func() {
		ctx = context.Background()
		h = newHarness()
		auth = h.services.Auth()
	})

	It("registers a user and issues a token for them", func() {
		res, err := auth.Register(ctx, service.RegisterParams{Name: "Ada", Email: "Ada@Example.com", Password: "correct horse"})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.User.ID).NotTo(BeEmpty())
		Expect(res.User.Role).To(Equal("member"))
		Expect(res.Token).NotTo(BeEmpty())

		userID, err := auth.ValidateToken(res.Token)
		Expect(err).NotTo(HaveOccurred())
		Expect(userID).To(Equal(res.User.ID))
	})

	It("logs in with the right password only", func() {
		reg, err := auth.Register(ctx, service.RegisterParams{Name: "Ada", Email: "ada@example.com", Password: "correct horse"})
		Expect(err).NotTo(HaveOccurred())

		res, err := auth.Login(ctx, "ADA@example.com", "correct horse")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.User.ID).To(Equal(reg.User.ID))

		_, err = auth.Login(ctx, "ada@example.com", "wrong password")
		Expect(err).To(MatchError(service.ErrInvalidCredentials))
		_, err = auth.Login(ctx, "nobody@example.com", "correct horse")
		Expect(err).To(MatchError(service.ErrInvalidCredentials))
	})

	It("rejects a duplicate email and rolls the user back", func() {
		_, err := auth.Register(ctx, service.RegisterParams{Name: "Ada", Email: "ada@example.com", Password: "correct horse"})
		Expect(err).NotTo(HaveOccurred())

		_, err = auth.Register(ctx, service.RegisterParams{Name: "Imposter", Email: "ada@example.com", Password: "other password"})
		Expect(errors.Is(err, service.ErrConflict)).To(BeTrue())

		users, err := h.services.Presence().ListUsers(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(users).To(HaveLen(1))
	})

	DescribeTable("validates registration input",
		func(params service.RegisterParams) {
			_, err := auth.Register(ctx, params)
			Expect(errors.Is(err, service.ErrValidation)).To(BeTrue())
		},
		Entry("missing name", service.RegisterParams{Email: "a@b.co", Password: "longenough"}),
		Entry("bad email", service.RegisterParams{Name: "A", Email: "nope", Password: "longenough"}),
		Entry("short password", service.RegisterParams{Name: "A", Email: "a@b.co", Password: "short"}),
	)

	It("rejects tokens signed with another secret", func() {
		other := service.NewAuthService(h.stores, service.NewMemoryTxRunner(h.stores), config.AuthConfig{JWTSecret: "other"})
		res, err := other.Register(ctx, service.RegisterParams{Name: "Bo", Email: "bo@example.com", Password: "correct horse"})
		Expect(err).NotTo(HaveOccurred())

		_, err = auth.ValidateToken(res.Token)
		Expect(err).To(MatchError(service.ErrInvalidToken))
		_, err = auth.ValidateToken("garbage")
		Expect(err).To(MatchError(service.ErrInvalidToken))
	})
})
