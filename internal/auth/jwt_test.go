package auth

import (
	"context"
	"testing"
	"time"

	"webHostingPortal/internal/testutil"
)

const testSecret = "test-secret"

func TestParseFromMD_ValidBearer(t *testing.T) {
	tok := testutil.GenerateJWTHS256(t, testSecret, "u-1", "alice@example.com", "customer")
	ctx := testutil.CtxWithBearer(context.Background(), tok)
	p, err := ParseFromMD(ctx, testSecret)
	if err != nil {
		t.Fatalf("ParseFromMD: %v", err)
	}
	if p.Subject != "u-1" || p.Email != "alice@example.com" || p.Kind != KindCustomer {
		t.Fatalf("principal mismatch: %+v", p)
	}
}

func TestParseFromMD_MissingHeader(t *testing.T) {
	if _, err := ParseFromMD(context.Background(), testSecret); err == nil {
		t.Fatalf("expected error for missing metadata")
	}
}

func TestParseBearer_Rejections(t *testing.T) {
	tok := testutil.GenerateJWTHS256(t, testSecret, "u-1", "a@b.co", "customer")
	if _, err := ParseBearer("Basic "+tok, testSecret); err == nil {
		t.Fatalf("expected error for non-bearer scheme")
	}
	if _, err := ParseBearer("Bearer "+tok, "wrong"); err == nil {
		t.Fatalf("expected error for wrong secret")
	}
	odd := testutil.GenerateJWTHS256(t, testSecret, "u-1", "a@b.co", "drone")
	if _, err := ParseBearer("Bearer "+odd, testSecret); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
	empty := testutil.GenerateJWTHS256(t, testSecret, "", "", "")
	if _, err := parseJWT(empty, testSecret); err == nil {
		t.Fatalf("expected invalid claims error")
	}
}

func TestIssueToken_RoundTripAndExpiry(t *testing.T) {
	tok, err := IssueToken(testSecret, Principal{Subject: "a-1", Email: "root@x.io", Kind: KindAdmin}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	p, err := ParseBearer("Bearer "+tok, testSecret)
	if err != nil || p.Kind != KindAdmin || p.Subject != "a-1" {
		t.Fatalf("round trip: %+v %v", p, err)
	}
	expired, err := IssueToken(testSecret, Principal{Subject: "a-1", Kind: KindAdmin}, -time.Minute)
	if err != nil {
		t.Fatalf("issue expired: %v", err)
	}
	if _, err := ParseBearer("Bearer "+expired, testSecret); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestPasswordAndCodes(t *testing.T) {
	h, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(h, "hunter22") || CheckPassword(h, "hunter23") || CheckPassword("", "x") {
		t.Fatalf("password check mismatch")
	}
	for i := 0; i < 20; i++ {
		c, err := NewCode(6)
		if err != nil || len(c) != 6 {
			t.Fatalf("code %q: %v", c, err)
		}
	}
	if _, err := NewCode(0); err == nil {
		t.Fatalf("expected error for zero length")
	}
}
