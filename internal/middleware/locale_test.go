package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDetectLocale(t *testing.T) {
	countryLang := func(c string) string {
		if c == "BR" {
			return "pt"
		}
		return ""
	}
	tests := []struct {
		name    string
		setup   func(r *http.Request)
		country string
		want    string
	}{
		{
			name: "x-locale overrides",
			setup: func(r *http.Request) {
				r.Header.Set("X-Locale", "ID")
				r.Header.Set("Accept-Language", "fr-FR")
			},
			want: "id",
		},
		{
			name: "accept-language matched",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "fr-CH, fr;q=0.9, en;q=0.8")
			},
			want: "fr",
		},
		{
			name: "accept-language regional id",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "id-ID,en;q=0.8")
			},
			country: "US",
			want:    "id",
		},
		{
			name:    "country language fallback",
			country: "BR",
			want:    "pt",
		},
		{
			name:    "unknown country defaults",
			country: "US",
			want:    DefaultLocale,
		},
		{
			name: "default",
			want: DefaultLocale,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.setup != nil {
				tc.setup(req)
			}
			if got := detectLocale(req, tc.country, countryLang); got != tc.want {
				t.Fatalf("detectLocale() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResolveCountry(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *http.Request)
		resolver CountryLookup
		want     string
	}{
		{
			name: "header precedence",
			setup: func(r *http.Request) {
				r.Header.Set("X-Country-Code", "us")
				r.Header.Set("CF-IPCountry", "id")
			},
			want: "US",
		},
		{
			name: "resolver fallback",
			resolver: func(ip string) (string, error) {
				if ip != "203.0.113.4" {
					t.Fatalf("unexpected ip: %s", ip)
				}
				return "my", nil
			},
			want: "MY",
		},
		{
			name: "resolver error returns empty",
			resolver: func(string) (string, error) {
				return "", errors.New("boom")
			},
			want: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "203.0.113.4:80"
			if tc.setup != nil {
				tc.setup(req)
			}
			if got := ResolveCountry(req, tc.resolver); got != tc.want {
				t.Fatalf("ResolveCountry() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestLocaleMiddlewareStoresContext(t *testing.T) {
	var gotLocale, gotCountry string
	h := Locale(nil, func(string) string { return "es" })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLocale = LocaleFromContext(r.Context())
		gotCountry = CountryFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("CF-IPCountry", "mx")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if gotLocale != "es" || gotCountry != "MX" {
		t.Fatalf("locale=%q country=%q", gotLocale, gotCountry)
	}
	if got := LocaleFromContext(context.Background()); got != DefaultLocale {
		t.Fatalf("LocaleFromContext() default = %q", got)
	}
}
