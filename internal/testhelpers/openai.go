package testhelpers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sashabaranov/go-openai"
)

// FakeOpenAI is an in-process stand-in for the OpenAI transcription and chat completion endpoints.
//
// The responses default to a single timed segment and an empty evaluations object. Replace them with
// [FakeOpenAI.OnTranscribe] and [FakeOpenAI.OnChat].
type FakeOpenAI struct {
	server *httptest.Server

	mu                 sync.Mutex
	transcriptionFiles []string
	chatRequests       []openai.ChatCompletionRequest
	transcribe         func(fileName string) (int, string)
	chat               func(req openai.ChatCompletionRequest) (int, string)
	plainErrors        bool
}

// NewFakeOpenAI starts a FakeOpenAI that is closed when the test finishes.
func NewFakeOpenAI(t *testing.T) *FakeOpenAI {
	t.Helper()
	f := &FakeOpenAI{
		transcribe: func(string) (int, string) {
			return http.StatusOK, `{"text":"hello there","segments":[{"id":0,"start":0,"end":10,"text":"hello there"}]}`
		},
		chat: func(openai.ChatCompletionRequest) (int, string) {
			return http.StatusOK, `{"evaluations":[]}`
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/audio/transcriptions", f.handleTranscription)
	mux.HandleFunc("POST /v1/chat/completions", f.handleChat)
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// OnTranscribe sets the function returning the status code and JSON body for an uploaded file name.
func (f *FakeOpenAI) OnTranscribe(fn func(fileName string) (int, string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcribe = fn
}

// OnChat sets the function returning the status code and the assistant message content. For non-2xx codes the
// content becomes the error message.
func (f *FakeOpenAI) OnChat(fn func(req openai.ChatCompletionRequest) (int, string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chat = fn
}

// SendPlainErrors makes error responses carry the message as a text/plain body, like a proxy in front of the
// API would, instead of the JSON error envelope.
func (f *FakeOpenAI) SendPlainErrors() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plainErrors = true
}

// BaseURL is the value for the OPENAI_BASE_URL setting.
func (f *FakeOpenAI) BaseURL() string {
	return f.server.URL + "/v1"
}

// TranscriptionFiles lists the base names of the uploaded files in call order.
func (f *FakeOpenAI) TranscriptionFiles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.transcriptionFiles...)
}

// ChatRequests lists the received chat completion requests in call order.
func (f *FakeOpenAI) ChatRequests() []openai.ChatCompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]openai.ChatCompletionRequest(nil), f.chatRequests...)
}

// Calls is the total number of requests to either endpoint.
func (f *FakeOpenAI) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transcriptionFiles) + len(f.chatRequests)
}

func (f *FakeOpenAI) handleTranscription(w http.ResponseWriter, r *http.Request) {
	fileName := ""
	if file, header, err := r.FormFile("file"); err == nil {
		fileName = filepath.Base(header.Filename)
		_, _ = io.Copy(io.Discard, file)
		_ = file.Close()
	}
	f.mu.Lock()
	f.transcriptionFiles = append(f.transcriptionFiles, fileName)
	transcribe := f.transcribe
	plain := f.plainErrors
	f.mu.Unlock()

	status, body := transcribe(fileName)
	if status >= http.StatusBadRequest {
		writeError(w, status, body, plain)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (f *FakeOpenAI) handleChat(w http.ResponseWriter, r *http.Request) {
	var req openai.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), false)
		return
	}
	f.mu.Lock()
	f.chatRequests = append(f.chatRequests, req)
	chat := f.chat
	plain := f.plainErrors
	f.mu.Unlock()

	status, content := chat(req)
	if status >= http.StatusBadRequest {
		writeError(w, status, content, plain)
		return
	}
	resp := openai.ChatCompletionResponse{ //nolint:exhaustruct // only what the client reads
		ID:     "chatcmpl-test",
		Object: "chat.completion",
		Model:  req.Model,
		Choices: []openai.ChatCompletionChoice{{ //nolint:exhaustruct // only what the client reads
			Index:        0,
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}, //nolint:exhaustruct,lll // plain text reply
			FinishReason: openai.FinishReasonStop,
		}},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, status int, message string, plain bool) {
	if plain {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, message)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": message, "type": "server_error"},
	})
}
