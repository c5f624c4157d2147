package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

type rolesChecker map[string]bool

func (r rolesChecker) Can(holder, _ string) bool { return r[holder] }

func TestRequestIDMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(RequestIDMiddleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(GetRequestID(c)) })

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{name: "propagated", incoming: "req-1", keep: true},
		{name: "generated", incoming: ""},
		{name: "oversized replaced", incoming: strings.Repeat("x", 200)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.incoming != "" {
				req.Header.Set(HeaderRequestID, tt.incoming)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			got := resp.Header.Get(HeaderRequestID)
			if tt.keep && got != tt.incoming {
				t.Errorf("request id = %q, want %q", got, tt.incoming)
			}
			if !tt.keep && (got == "" || got == tt.incoming) {
				t.Errorf("request id = %q, want a generated one", got)
			}
		})
	}
}

func TestRequirePermission(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(CtxHolderID, c.Get("X-Holder"))
		return c.Next()
	})
	app.Get("/due", RequirePermission(rolesChecker{"operator": true}, "trigger_settlement"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for holder, want := range map[string]int{"operator": fiber.StatusOK, "alice": fiber.StatusForbidden, "": fiber.StatusForbidden} {
		req := httptest.NewRequest("GET", "/due", nil)
		req.Header.Set("X-Holder", holder)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != want {
			t.Errorf("holder %q: status = %d, want %d", holder, resp.StatusCode, want)
		}
	}
}
