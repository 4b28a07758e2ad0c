package auth

import (
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

const testKey = "test-signing-key"

func TestIssueParseRoundTrip(t *testing.T) {
	token, exp, err := Issue("alice", RoleTeacher, testKey, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) < 59*time.Minute {
		t.Fatalf("unexpected expiry %s", exp)
	}

	claims, err := Parse(token, testKey)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "alice" || claims.Role != RoleTeacher {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseRejectsWrongKeyAndExpired(t *testing.T) {
	token, _, _ := Issue("bob", RoleStudent, testKey, time.Hour)
	if _, err := Parse(token, "other-key"); err == nil {
		t.Fatal("expected signature failure")
	}

	expired, _, _ := Issue("bob", RoleStudent, testKey, -time.Minute)
	if _, err := Parse(expired, testKey); err == nil {
		t.Fatal("expected expiry failure")
	}
}

func TestDecodeRoleReadsOnlyPayload(t *testing.T) {
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"role":"teacher"}`))
	role, err := DecodeRole("not-a-real-header." + payload + ".sig")
	if err != nil {
		t.Fatalf("DecodeRole: %v", err)
	}
	if role != RoleTeacher {
		t.Fatalf("role = %q", role)
	}
}

func TestDecodeRoleMatchesIssuedToken(t *testing.T) {
	for _, want := range []Role{RoleStudent, RoleTeacher, RoleAdmin} {
		token, _, err := Issue("u", want, testKey, time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		got, err := DecodeRole(token)
		if err != nil {
			t.Fatalf("DecodeRole(%s): %v", want, err)
		}
		if got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
}

func TestDecodeRoleMalformed(t *testing.T) {
	for _, token := range []string{
		"",
		"only.two",
		"a.b.c.d",
		"h.!!!.s",
		"h." + base64.RawURLEncoding.EncodeToString([]byte("not json")) + ".s",
	} {
		if _, err := DecodeRole(token); !errors.Is(err, ErrMalformedToken) {
			t.Errorf("DecodeRole(%q) err = %v, want ErrMalformedToken", token, err)
		}
	}
}

func TestBearerAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", BearerAuth(testKey), func(c *gin.Context) {
		claims, _ := ClaimsFrom(c)
		c.JSON(http.StatusOK, gin.H{"sub": claims.Subject, "role": claims.Role})
	})

	token, _, _ := Issue("carol", RoleAdmin, testKey, time.Hour)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
		{"lowercase scheme", "bearer " + token, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tc.want, w.Body.String())
			}
			if tc.want == http.StatusUnauthorized && w.Header().Get("WWW-Authenticate") != "Bearer" {
				t.Fatal("missing bearer challenge")
			}
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("pw", 4)
	if err != nil {
		t.Fatal(err)
	}
	if !CheckPassword(hash, "pw") {
		t.Fatal("password should match")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatal("wrong password matched")
	}
}

func TestRoleValid(t *testing.T) {
	if !RoleTeacher.Valid() || Role("janitor").Valid() {
		t.Fatal("Valid mismatch")
	}
	if !RoleAdmin.In(RoleTeacher, RoleAdmin) || RoleStudent.In(RoleTeacher, RoleAdmin) {
		t.Fatal("In mismatch")
	}
}
