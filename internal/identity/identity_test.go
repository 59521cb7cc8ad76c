package identity

import (
	"testing"
	"time"
)

var testSecret = []byte("test-secret")

func TestIssueAndVerify(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour)

	token, playerID, err := issuer.IssueGuest("Ada")
	if err != nil {
		t.Fatalf("IssueGuest = %v", err)
	}
	if token == "" || playerID == "" {
		t.Fatal("empty token or player ID")
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify = %v", err)
	}
	if claims.Subject != playerID {
		t.Errorf("subject = %q, want %q", claims.Subject, playerID)
	}
	if claims.DisplayName != "Ada" {
		t.Errorf("display name = %q, want Ada", claims.DisplayName)
	}
}

func TestIssueGuestDistinctIdentities(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour)
	_, first, err := issuer.IssueGuest("Ada")
	if err != nil {
		t.Fatal(err)
	}
	_, second, err := issuer.IssueGuest("Ada")
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Errorf("two guests share the identity %q", first)
	}
}

func TestVerifyRejects(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour)
	good, _, err := issuer.IssueGuest("Ada")
	if err != nil {
		t.Fatal(err)
	}

	other := NewIssuer([]byte("another-secret"), time.Hour)
	expired := NewIssuer(testSecret, -time.Minute)
	expiredToken, _, err := expired.IssueGuest("Ada")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		issuer *Issuer
		token  string
	}{
		{"garbage", issuer, "not-a-token"},
		{"empty", issuer, ""},
		{"wrong secret", other, good},
		{"tampered", issuer, good + "x"},
		{"expired", issuer, expiredToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.issuer.Verify(tt.token); err != ErrInvalidToken {
				t.Errorf("Verify = %v, want ErrInvalidToken", err)
			}
		})
	}
}
