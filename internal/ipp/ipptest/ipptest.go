// Package ipptest provides a fake IPP printer for tests.
package ipptest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/coulterac/kprint/internal/ipp"
)

// Job is a request received by the fake printer.
type Job struct {
	Request  *ipp.Message
	Document []byte
	Header   http.Header
	Path     string
}

// Responder builds the response to a received job.
type Responder func(job Job) *ipp.Message

// Server is an httptest server that speaks just enough IPP to accept jobs.
type Server struct {
	*httptest.Server

	mu   sync.Mutex
	jobs []Job
}

// NewServer starts a fake printer. The server is closed when the test ends.
func NewServer(t *testing.T, respond Responder) *Server {
	t.Helper()
	s := &Server{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := ipp.Decode(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		doc, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		job := Job{Request: req, Document: doc, Header: r.Header.Clone(), Path: r.URL.Path}
		s.mu.Lock()
		s.jobs = append(s.jobs, job)
		s.mu.Unlock()

		resp := respond(job)
		b, err := resp.MarshalBinary()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", ipp.ContentType)
		w.Write(b)
	}))
	t.Cleanup(s.Close)
	return s
}

// Jobs returns the jobs received so far.
func (s *Server) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Job(nil), s.jobs...)
}

// Accept returns a Responder that reports success and a job-uri under
// jobURI.
func Accept(jobURI string) Responder {
	return func(job Job) *ipp.Message {
		resp := &ipp.Message{Version: ipp.DefaultVersion, Code: 0x0000, RequestID: job.Request.RequestID}
		resp.Group(ipp.TagOperationAttributes).Add(
			ipp.Charset("attributes-charset", "utf-8"),
			ipp.NaturalLanguage("attributes-natural-language", "en"),
		)
		if jobURI != "" {
			resp.Group(ipp.TagJobAttributes).Add(
				ipp.URI("job-uri", jobURI),
				ipp.Integer("job-id", 42),
			)
		}
		return resp
	}
}
