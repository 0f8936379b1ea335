package subscription_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/speckit/gateway/catalog"
	"github.com/speckit/gateway/store/memory"
	"github.com/speckit/gateway/subscription"
)

func ctx() context.Context { return context.Background() }

func setup(t *testing.T) (*subscription.Service, *memory.Store) {
	t.Helper()
	s := memory.New()
	return subscription.NewService(s, catalog.New(), nil), s
}

func validInput() subscription.Input {
	return subscription.Input{
		TenantID: "t1",
		Name:     "deploy hook",
		URL:      "https://ok.example/hook",
		Events:   []string{catalog.SpecCreated, catalog.GenerationCompleted},
	}
}

func TestCreateHappyPath(t *testing.T) {
	svc, _ := setup(t)

	created, err := svc.Create(ctx(), validInput())
	if err != nil {
		t.Fatal(err)
	}

	if created.Secret == "" || !strings.HasPrefix(created.Secret, "whsec_") {
		t.Fatalf("expected whsec_ secret, got %q", created.Secret)
	}
	if created.Subscription.Status != subscription.StatusActive {
		t.Fatalf("new subscriptions start active, got %s", created.Subscription.Status)
	}
}

func TestCreateRejectsHTTPURL(t *testing.T) {
	svc, _ := setup(t)

	in := validInput()
	in.URL = "http://insecure.example"
	if _, err := svc.Create(ctx(), in); err == nil {
		t.Fatal("http URL must be rejected")
	}
}

func TestCreateRejectsEmptyEvents(t *testing.T) {
	svc, _ := setup(t)

	in := validInput()
	in.Events = nil
	if _, err := svc.Create(ctx(), in); err == nil {
		t.Fatal("empty event set must be rejected")
	}
}

func TestCreateRejectsUnknownEvent(t *testing.T) {
	svc, _ := setup(t)

	in := validInput()
	in.Events = []string{"invoice.created"}
	if _, err := svc.Create(ctx(), in); err == nil {
		t.Fatal("event types outside the vocabulary must be rejected")
	}
}

func TestSecretNeverSerializedAfterCreate(t *testing.T) {
	svc, _ := setup(t)

	created, err := svc.Create(ctx(), validInput())
	if err != nil {
		t.Fatal(err)
	}

	sub, err := svc.Get(ctx(), created.Subscription.ID)
	if err != nil {
		t.Fatal(err)
	}

	raw, err := json.Marshal(sub)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), created.Secret) {
		t.Fatal("signing secret leaked into subscription JSON")
	}
}

func TestUpdateKeepsSecret(t *testing.T) {
	svc, _ := setup(t)

	created, err := svc.Create(ctx(), validInput())
	if err != nil {
		t.Fatal(err)
	}

	updated, err := svc.Update(ctx(), created.Subscription.ID, subscription.Input{
		URL:    "https://new.example/hook",
		Events: []string{catalog.EpicUpdated},
	})
	if err != nil {
		t.Fatal(err)
	}

	if updated.URL != "https://new.example/hook" {
		t.Fatalf("URL not updated: %s", updated.URL)
	}
	if updated.Secret != created.Subscription.Secret {
		t.Fatal("update must not regenerate the secret")
	}
}

func TestUpdateRevalidates(t *testing.T) {
	svc, _ := setup(t)

	created, err := svc.Create(ctx(), validInput())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Update(ctx(), created.Subscription.ID, subscription.Input{URL: "http://nope.example"}); err == nil {
		t.Fatal("update must re-validate the URL scheme")
	}
	if _, err := svc.Update(ctx(), created.Subscription.ID, subscription.Input{Events: []string{"bogus.event"}}); err == nil {
		t.Fatal("update must re-validate event types")
	}
}

func TestToggleActivePaused(t *testing.T) {
	svc, _ := setup(t)

	created, err := svc.Create(ctx(), validInput())
	if err != nil {
		t.Fatal(err)
	}

	sub, err := svc.Toggle(ctx(), created.Subscription.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sub.Status != subscription.StatusPaused {
		t.Fatalf("expected paused, got %s", sub.Status)
	}

	sub, err = svc.Toggle(ctx(), created.Subscription.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sub.Status != subscription.StatusActive {
		t.Fatalf("expected active, got %s", sub.Status)
	}
}

func TestToggleDisabledIsTerminal(t *testing.T) {
	svc, _ := setup(t)

	created, err := svc.Create(ctx(), validInput())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Disable(ctx(), created.Subscription.ID); err != nil {
		t.Fatal(err)
	}

	_, err = svc.Toggle(ctx(), created.Subscription.ID)
	if !errors.Is(err, subscription.ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestUpdateReactivatesDisabled(t *testing.T) {
	svc, _ := setup(t)

	created, err := svc.Create(ctx(), validInput())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Disable(ctx(), created.Subscription.ID); err != nil {
		t.Fatal(err)
	}

	updated, err := svc.Update(ctx(), created.Subscription.ID, subscription.Input{Name: "revived"})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != subscription.StatusActive {
		t.Fatalf("edit is the only path out of disabled, got %s", updated.Status)
	}
}

func TestDelete(t *testing.T) {
	svc, _ := setup(t)

	created, err := svc.Create(ctx(), validInput())
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(ctx(), created.Subscription.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx(), created.Subscription.ID); err == nil {
		t.Fatal("deleted subscription should not be found")
	}
}
