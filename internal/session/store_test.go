package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ryanle444/HealthCoach/internal/core/domain"
)

func TestStateEstablishReplacesIdentityAndClearsAttempt(t *testing.T) {
	state := &State{}
	state.SetAttempt(domain.LoginAttempt{Username: "alice", PendingCode: "123456"})

	identity := domain.AuthenticatedSession{
		UserID:    "user-1",
		Username:  "Alice",
		FirstName: "Alice",
		LastName:  "Smith",
	}
	state.Establish(identity)

	if _, ok := state.Attempt(); ok {
		t.Fatal("expected attempt to be cleared after Establish")
	}

	got, ok := state.Identity()
	if !ok {
		t.Fatal("expected identity after Establish")
	}
	if got.Username != "Alice" || got.UserID != "user-1" {
		t.Fatalf("unexpected identity: %+v", got)
	}
}

func TestStateLastWriteWinsOnAttempt(t *testing.T) {
	state := &State{}
	state.SetAttempt(domain.LoginAttempt{Username: "first", PendingCode: "111111"})
	state.SetAttempt(domain.LoginAttempt{Username: "second", PendingCode: "222222"})

	attempt, ok := state.Attempt()
	if !ok {
		t.Fatal("expected attempt")
	}
	if attempt.Username != "second" || attempt.PendingCode != "222222" {
		t.Fatalf("expected second attempt to win, got %+v", attempt)
	}
}

func TestStateResetClearsEverything(t *testing.T) {
	state := &State{}
	state.SetAttempt(domain.LoginAttempt{Username: "alice"})
	state.Establish(domain.AuthenticatedSession{UserID: "user-1"})
	state.Reset()

	if _, ok := state.Identity(); ok {
		t.Fatal("expected no identity after Reset")
	}
	if _, ok := state.Attempt(); ok {
		t.Fatal("expected no attempt after Reset")
	}
}

func TestStateConcurrentReadersSeeWholeIdentity(t *testing.T) {
	state := &State{}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			id := fmt.Sprintf("user-%d", i)
			state.Establish(domain.AuthenticatedSession{
				UserID:     id,
				Username:   id,
				FirstName:  id,
				LastName:   id,
				SignedInAt: time.Now(),
			})
		}
	}()

	for i := 0; i < 1000; i++ {
		identity, ok := state.Identity()
		if !ok {
			continue
		}
		if identity.UserID != identity.Username || identity.UserID != identity.FirstName {
			t.Fatalf("observed torn identity: %+v", identity)
		}
	}

	close(stop)
	wg.Wait()
}

func TestRegistryReturnsSameHandlePerID(t *testing.T) {
	registry := NewRegistry()

	a := registry.Session("sess-a")
	b := registry.Session("sess-a")
	if a != b {
		t.Fatal("expected the same handle for the same session id")
	}

	c := registry.Session("sess-c")
	if a == c {
		t.Fatal("expected distinct handles for distinct session ids")
	}

	if registry.Len() != 2 {
		t.Fatalf("expected 2 sessions, got %d", registry.Len())
	}

	registry.Drop("sess-a")
	if registry.Len() != 1 {
		t.Fatalf("expected 1 session after Drop, got %d", registry.Len())
	}
}
