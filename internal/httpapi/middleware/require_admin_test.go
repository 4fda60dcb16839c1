package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequireAdmin_AllowsAdminKey_BlocksPublicKey(t *testing.T) {
	keys := Keys{
		Public: []string{"pub_key"},
		Admin:  []string{"adm_key"},
	}

	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Admin key -> 200
	reqAdm := httptest.NewRequest(http.MethodDelete, "/api/state/x", nil)
	reqAdm.Header.Set("X-API-Key", "adm_key")
	recAdm := httptest.NewRecorder()
	RequireAdmin(keys)(okHandler).ServeHTTP(recAdm, reqAdm)
	if recAdm.Code != http.StatusOK {
		t.Fatalf("admin key should pass; got %d", recAdm.Code)
	}

	// Bearer form -> 200
	reqBearer := httptest.NewRequest(http.MethodDelete, "/api/state/x", nil)
	reqBearer.Header.Set("Authorization", "Bearer adm_key")
	recBearer := httptest.NewRecorder()
	RequireAdmin(keys)(okHandler).ServeHTTP(recBearer, reqBearer)
	if recBearer.Code != http.StatusOK {
		t.Fatalf("bearer admin key should pass; got %d", recBearer.Code)
	}

	// Public key -> 403
	reqPub := httptest.NewRequest(http.MethodDelete, "/api/state/x", nil)
	reqPub.Header.Set("X-API-Key", "pub_key")
	recPub := httptest.NewRecorder()
	RequireAdmin(keys)(okHandler).ServeHTTP(recPub, reqPub)
	if recPub.Code != http.StatusForbidden {
		t.Fatalf("public key should be forbidden; got %d", recPub.Code)
	}

	// Missing key -> 401
	reqNone := httptest.NewRequest(http.MethodDelete, "/api/state/x", nil)
	recNone := httptest.NewRecorder()
	RequireAdmin(keys)(okHandler).ServeHTTP(recNone, reqNone)
	if recNone.Code != http.StatusUnauthorized {
		t.Fatalf("missing key should be 401; got %d", recNone.Code)
	}
}

func TestRequireAny(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	open := httptest.NewRecorder()
	RequireAny(Keys{})(okHandler).ServeHTTP(open, httptest.NewRequest("GET", "/", nil))
	if open.Code != http.StatusOK {
		t.Fatalf("no keys configured should allow; got %d", open.Code)
	}

	keys := Keys{Public: []string{"pub_key"}, Admin: []string{"adm_key"}}
	for key, want := range map[string]int{
		"pub_key": http.StatusOK,
		"adm_key": http.StatusOK,
		"wrong":   http.StatusUnauthorized,
		"":        http.StatusUnauthorized,
	} {
		req := httptest.NewRequest("GET", "/api/state", nil)
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		rec := httptest.NewRecorder()
		RequireAny(keys)(okHandler).ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("key %q: got %d want %d", key, rec.Code, want)
		}
	}
}
