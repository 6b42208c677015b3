package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/use-agent/enrich/models"
)

func TestRecover(t *testing.T) {
	tests := []struct {
		name string
		in   string
		ok   bool
		key  string
	}{
		{"fenced", "```json\n{\"product_name\":\"X\"}\n```", true, "product_name"},
		{"prose around", `Here you go: {"a":1} hope it helps`, true, "a"},
		{"nested", `{"a":{"b":"c"}}`, true, "a"},
		{"no braces", "no json here", false, ""},
		{"reversed braces", "} oops {", false, ""},
		{"malformed", `{"a":1,}`, false, ""},
		{"two objects", `{"a":1} and {"b":2}`, false, ""},
		{"adjacent objects with stray brace", `{a:1}{b:2}extra}`, false, ""},
		{"empty", "", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, ok := Recover(tt.in)
			if ok != tt.ok {
				t.Fatalf("Recover(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok {
				if _, has := obj[tt.key]; !has {
					t.Errorf("Recover(%q) = %v, missing %q", tt.in, obj, tt.key)
				}
			}
		})
	}
}

func TestRecoverLenient(t *testing.T) {
	obj, ok := RecoverLenient("```json\n{\"a\": 1, \"b\": \"x\",}\n```")
	if !ok {
		t.Fatal("RecoverLenient failed on a trailing comma")
	}
	if obj["b"] != "x" {
		t.Errorf("obj = %v", obj)
	}
	if _, ok := RecoverLenient("nothing to repair"); ok {
		t.Error("RecoverLenient succeeded without braces")
	}
}

func TestBuildPrompt(t *testing.T) {
	content := strings.Repeat("é", MaxPromptContent+100)
	p := BuildPrompt(content, PromptOptions{})

	for _, want := range []string{
		`For the key "product_name"`,
		`For the key "description"`,
		`For the key "specifications"`,
		"Your Goal:",
		"General Strategy:",
		"CRITICAL INSTRUCTIONS",
		`"Not found"`,
		"physical addresses",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if !strings.HasSuffix(p, "**JSON_OUTPUT:**\n") {
		t.Error("prompt does not end with the output marker")
	}
	if n := strings.Count(p, "é"); n != MaxPromptContent {
		t.Errorf("prompt carries %d content characters, want %d", n, MaxPromptContent)
	}
	if strings.Contains(p, "translated into") {
		t.Error("untranslated prompt mentions translation")
	}
	if !strings.Contains(BuildPrompt("x", PromptOptions{TargetLanguage: "Romanian"}), "translated into Romanian") {
		t.Error("target language not requested")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo", 2); got != "hé" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("abc", 10); got != "abc" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("abc", 0); got != "" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate(strings.Repeat("ß", 20), 7); utf8.RuneCountInString(got) != 7 {
		t.Errorf("Truncate kept %d runes", utf8.RuneCountInString(got))
	}
}

func chatServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: "test-key", Model: "test-model", BaseURL: srv.URL + "/"})
}

func TestClientComplete(t *testing.T) {
	var gotPrompt, gotModel, gotAuth string
	c := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.Unmarshal(body, &req)
		gotModel = req.Model
		if len(req.Messages) == 1 && req.Messages[0].Role == "user" {
			gotPrompt = req.Messages[0].Content
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"product_name\":\"X\"}"},"finish_reason":"stop"}]}`)
	})

	out, err := c.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if out != `{"product_name":"X"}` {
		t.Errorf("Complete = %q", out)
	}
	if gotPrompt != "hello" || gotModel != "test-model" || gotAuth != "Bearer test-key" {
		t.Errorf("request prompt=%q model=%q auth=%q", gotPrompt, gotModel, gotAuth)
	}
}

func TestClientErrorCodes(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusUnauthorized, models.ErrCodeLLMAuthFailure},
		{http.StatusForbidden, models.ErrCodeLLMAuthFailure},
		{http.StatusTooManyRequests, models.ErrCodeLLMRateLimited},
		{http.StatusInternalServerError, models.ErrCodeLLMFailure},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, `{"error":{"message":"nope","type":"error","code":"x"}}`)
			})
			_, err := c.Complete(context.Background(), "p")
			if got := models.CodeOf(err); got != tt.want {
				t.Errorf("CodeOf = %q, want %q (err %v)", got, tt.want, err)
			}
		})
	}
}

func TestClientTimeout(t *testing.T) {
	c := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Complete(ctx, "p")
	if got := models.CodeOf(err); got != models.ErrCodeTimeout {
		t.Errorf("CodeOf = %q, want %q (err %v)", got, models.ErrCodeTimeout, err)
	}
}

func TestClientCanceled(t *testing.T) {
	c := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := c.Complete(ctx, "p")
	if got := models.CodeOf(err); got != models.ErrCodeCanceled {
		t.Errorf("CodeOf = %q, want %q (err %v)", got, models.ErrCodeCanceled, err)
	}
}
