package embedding_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/reviewdesk/review-engine/internal/config"
	"github.com/reviewdesk/review-engine/internal/embedding"
)

var _ = Describe("embedder", func() {
	Context("factory", func() {
		It("returns the noop embedder when disabled", func() {
			cfg := config.NewDefault()
			cfg.Embedding.Enabled = false

			e := embedding.New(cfg)
			Expect(e.Enabled()).To(BeFalse())

			vec, err := e.Embed(context.TODO(), "maize rust")
			Expect(err).To(BeNil())
			Expect(vec).To(BeNil())
		})

		It("returns the openai embedder when enabled", func() {
			cfg := config.NewDefault()
			cfg.Embedding.Enabled = true
			cfg.Embedding.APIKey = "test"

			Expect(embedding.New(cfg).Enabled()).To(BeTrue())
		})
	})

	Context("openai", func() {
		var srv *httptest.Server

		AfterEach(func() {
			if srv != nil {
				srv.Close()
			}
		})

		It("converts the returned vector", func() {
			var body map[string]any
			srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(HaveSuffix("/embeddings"))
				_ = json.NewDecoder(r.Body).Decode(&body)
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small","data":[{"object":"embedding","index":0,"embedding":[0.5,0.25,1]}],"usage":{"prompt_tokens":2,"total_tokens":2}}`))
			}))

			e := embedding.NewOpenAIEmbedder("test", srv.URL, "text-embedding-3-small")
			vec, err := e.Embed(context.TODO(), "how to treat maize rust")
			Expect(err).To(BeNil())
			Expect(vec).To(Equal([]float32{0.5, 0.25, 1}))
			Expect(body["input"]).To(Equal("how to treat maize rust"))
			Expect(body["model"]).To(Equal("text-embedding-3-small"))
		})

		It("fails on empty text without calling the api", func() {
			e := embedding.NewOpenAIEmbedder("test", "http://127.0.0.1:1", "m")
			_, err := e.Embed(context.TODO(), "")
			Expect(err).ToNot(BeNil())
		})

		It("wraps api errors", func() {
			srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":{"message":"bad model","type":"invalid_request_error"}}`))
			}))

			e := embedding.NewOpenAIEmbedder("test", srv.URL, "unknown")
			_, err := e.Embed(context.TODO(), "text")
			Expect(err).ToNot(BeNil())
			Expect(err.Error()).To(ContainSubstring("unknown"))
		})
	})
})
