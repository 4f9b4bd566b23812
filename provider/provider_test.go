package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPrompt(t *testing.T) {
	p := Prompt("a sleepy cat")

	for _, want := range []string{"#ff00ff", "8 columns by 7 rows", "Row 1: Idle", "Row 7: Dragging", "Character: a sleepy cat"} {
		if !strings.Contains(p, want) {
			t.Errorf("Prompt() missing %q", want)
		}
	}
	if !strings.Contains(Prompt("  "), DefaultCharacter) {
		t.Error("Prompt(blank) does not use the default character")
	}
}

func TestNew_Configuration(t *testing.T) {
	if _, err := New(Config{Model: GeminiFlashImage}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("New(gemini without key) error = %v, want ErrNotConfigured", err)
	}
	if _, err := New(Config{Model: "custom", APIKey: "k"}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("New(custom without URL) error = %v, want ErrNotConfigured", err)
	}

	p, err := New(Config{Model: "custom", APIKey: "k", BaseURL: "http://x/v1/", CustomModel: "m"})
	if err != nil {
		t.Fatalf("New(custom) error = %v", err)
	}
	if p.Name() != "custom:m" {
		t.Errorf("Name() = %q", p.Name())
	}

	g, err := New(Config{APIKey: "k"})
	if err != nil || g.Name() != GeminiFlashImage {
		t.Errorf("New(default) = %v, %v", g, err)
	}
}

func TestGemini_Generate(t *testing.T) {
	var got geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/"+GeminiProImage+":generateContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "secret" {
			t.Error("API key header missing")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[
			{"text":"here you go"},
			{"inlineData":{"mimeType":"image/png","data":"AAAA"}}
		]}}]}`))
	}))
	defer srv.Close()

	g, err := NewGemini(GeminiProImage, "secret", WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}
	data, err := g.Generate(context.Background(), "prompt text")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if string(data) != "data:image/png;base64,AAAA" {
		t.Errorf("Generate() = %q", data)
	}
	if got.Contents[0].Parts[0].Text != "prompt text" {
		t.Errorf("request prompt = %+v", got.Contents)
	}
	if cfg := got.GenerationConfig.ImageConfig; cfg.AspectRatio != "4:3" || cfg.ImageSize != "2K" {
		t.Errorf("imageConfig = %+v", cfg)
	}
}

func TestGemini_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"api error", http.StatusForbidden, `{"error":{"message":"Requested entity was not found."}}`, func(err error) bool {
			var ae *APIError
			return errors.As(err, &ae) && ae.StatusCode == 403 && strings.Contains(ae.Message, "not found")
		}},
		{"no image", http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"sorry"}]}}]}`, func(err error) bool {
			return errors.Is(err, ErrNoImage)
		}},
		{"no candidates", http.StatusOK, `{}`, func(err error) bool {
			return errors.Is(err, ErrNoImage)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			g, _ := NewGemini("", "k", WithEndpoint(srv.URL))
			_, err := g.Generate(context.Background(), "p")
			if !tt.check(err) {
				t.Errorf("Generate() error = %v", err)
			}
		})
	}
}

func TestCustom_GenerateB64(t *testing.T) {
	var got customRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/images/generations" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"data":[{"b64_json":"QUJD"}]}`))
	}))
	defer srv.Close()

	c, err := NewCustom(srv.URL+"/v1/", "tok", "img-model")
	if err != nil {
		t.Fatal(err)
	}
	data, err := c.Generate(context.Background(), "p")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if string(data) != "data:image/png;base64,QUJD" {
		t.Errorf("Generate() = %q", data)
	}
	want := customRequest{Model: "img-model", Prompt: "p", N: 1, Size: "1024x1024", ResponseFormat: "b64_json"}
	if got != want {
		t.Errorf("request = %+v, want %+v", got, want)
	}
}

func TestCustom_GenerateURL(t *testing.T) {
	image := []byte("\x89PNG fake")
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/images/generations", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"url": srv.URL + "/files/sheet.png"}},
		})
	})
	mux.HandleFunc("/files/sheet.png", func(w http.ResponseWriter, r *http.Request) {
		w.Write(image)
	})

	c, _ := NewCustom(srv.URL, "tok", "m")
	data, err := c.Generate(context.Background(), "p")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if string(data) != string(image) {
		t.Errorf("Generate() = %q, want downloaded bytes", data)
	}
}

func TestCustom_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer empty" {
			w.Write([]byte(`{"data":[]}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()

	c, _ := NewCustom(srv.URL, "wrong", "m")
	_, err := c.Generate(context.Background(), "p")
	var ae *APIError
	if !errors.As(err, &ae) || ae.Message != "bad key" {
		t.Errorf("Generate() error = %v, want APIError bad key", err)
	}

	c, _ = NewCustom(srv.URL, "empty", "m")
	if _, err := c.Generate(context.Background(), "p"); !errors.Is(err, ErrNoImage) {
		t.Errorf("Generate() error = %v, want ErrNoImage", err)
	}
}

func TestGemini_ImageDecodable(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"` + payload + `"}}]}}]}`))
	}))
	defer srv.Close()

	g, _ := NewGemini("", "k", WithEndpoint(srv.URL))
	data, err := g.Generate(context.Background(), "p")
	if err != nil {
		t.Fatal(err)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(string(data), "data:image/png;base64,"))
	if err != nil || string(raw) != "png-bytes" {
		t.Errorf("payload = %q, %v", raw, err)
	}
}
