// Interlock - Multi-Tenant Integration Platform
// Copyright 2026 Interlock Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/interlockhq/interlock

package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/interlockhq/interlock/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", "interlock", time.Hour)

	token, err := tm.Issue(&Subject{
		ID:       "u1",
		Username: "alice",
		Role:     models.RoleManager,
		TenantID: "t1",
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	sub, err := tm.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if sub.ID != "u1" || sub.Username != "alice" || sub.Role != models.RoleManager || sub.TenantID != "t1" {
		t.Errorf("subject round trip mismatch: %+v", sub)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", "interlock", time.Hour)
	verifier := NewTokenManager("secret-b", "interlock", time.Hour)

	token, err := issuer.Issue(&Subject{ID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := verifier.Verify(token); err == nil {
		t.Error("token signed with a different secret should fail")
	}
}

func TestVerify_WrongIssuer(t *testing.T) {
	issuer := NewTokenManager("secret", "someone-else", time.Hour)
	verifier := NewTokenManager("secret", "interlock", time.Hour)

	token, err := issuer.Issue(&Subject{ID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := verifier.Verify(token); err == nil {
		t.Error("token from a different issuer should fail")
	}
}

func TestVerify_Expired(t *testing.T) {
	tm := NewTokenManager("secret", "interlock", time.Hour)

	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			Issuer:    "interlock",
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tm.Verify(token); err == nil {
		t.Error("expired token should fail")
	}
}

func TestVerify_RejectsUnexpectedAlgorithm(t *testing.T) {
	tm := NewTokenManager("secret", "interlock", time.Hour)

	// alg=none with an empty signature.
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject: "u1",
		Issuer:  "interlock",
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tm.Verify(token); err == nil {
		t.Error("unsigned token should fail")
	}
}

func TestVerify_MissingSubject(t *testing.T) {
	tm := NewTokenManager("secret", "interlock", time.Hour)

	now := time.Now().UTC()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "interlock",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tm.Verify(token); err == nil {
		t.Error("token without a subject should fail")
	}
}

func TestVerify_Garbage(t *testing.T) {
	tm := NewTokenManager("secret", "interlock", time.Hour)
	if _, err := tm.Verify("not.a.token"); err == nil {
		t.Error("garbage should fail")
	}
}
