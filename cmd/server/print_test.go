package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/coulterac/kprint/internal/ipp"
	"github.com/coulterac/kprint/internal/ipp/ipptest"
)

const printQuery = "?sides=two-sided-long-edge&colorMode=grayscale&copies=2&title=Thesis"

// untouched fails the test when the handler reads the body.
type untouched struct {
	t *testing.T
}

func (u untouched) Read(b []byte) (int, error) {
	u.t.Error("expected the body not to be read")
	return 0, io.EOF
}

func TestPrintHandler(t *testing.T) {
	s := newTestServer(t, ipptest.Accept("http://cups.internal:631/jobs/42"))

	doc := bytes.Repeat([]byte("%PDF-1.7\n"), 500)
	rr := s.do(http.MethodPost, "/printers/lobby/print"+printQuery+"&pages=1-3,2-5", s.token(t), bytes.NewReader(doc))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status codes to match; got: %v, want %v; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp printResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Message != "job submitted" {
		t.Errorf("unexpected message %q", resp.Message)
	}
	if resp.JobLink == nil || *resp.JobLink != "https://cups.internal:631/jobs/42" {
		t.Errorf("expected an https job link, got %v", resp.JobLink)
	}

	jobs := s.cups.Jobs()
	if len(jobs) != 1 {
		t.Fatalf("expected one job, got %d", len(jobs))
	}
	if !bytes.Equal(jobs[0].Document, doc) {
		t.Errorf("document mismatch: got %d bytes, want %d", len(jobs[0].Document), len(doc))
	}
	user, _ := jobs[0].Request.Find("requesting-user-name")
	if v, _ := user.StringValue(); v != "alice" {
		t.Errorf("expected the job to belong to alice, got %q", v)
	}
	ranges, _ := jobs[0].Request.Find("page-ranges")
	if len(ranges.Values) != 1 || ranges.Values[0] != (ipp.RangeOfInteger{Lower: 1, Upper: 5}) {
		t.Errorf("expected merged page ranges, got %v", ranges.Values)
	}
}

func TestPrintHandlerNullJobLink(t *testing.T) {
	s := newTestServer(t, ipptest.Accept(""))

	rr := s.do(http.MethodPost, "/printers/lab/print"+printQuery, s.token(t), strings.NewReader("doc"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status codes to match; got: %v, want %v", rr.Code, http.StatusOK)
	}
	if !strings.Contains(rr.Body.String(), `"jobLink":null`) {
		t.Errorf("expected a null job link, got %s", rr.Body.String())
	}
}

func TestPrintHandlerErrors(t *testing.T) {
	type testCase struct {
		name    string
		path    string
		auth    bool
		status  int
		message string
	}

	cases := []testCase{
		{
			name:   "no token",
			path:   "/printers/lobby/print" + printQuery,
			status: http.StatusUnauthorized,
		},
		{
			name:   "bad options",
			path:   "/printers/lobby/print?sides=both&colorMode=grayscale&copies=1",
			auth:   true,
			status: http.StatusBadRequest,
		},
		{
			name:   "title too long",
			path:   "/printers/lobby/print" + printQuery + strings.Repeat("x", 300),
			auth:   true,
			status: http.StatusBadRequest,
		},
		{
			name:    "unknown printer",
			path:    "/printers/basement/print" + printQuery,
			auth:    true,
			status:  http.StatusNotFound,
			message: "basement",
		},
		{
			name:    "bad pages",
			path:    "/printers/lobby/print" + printQuery + "&pages=1-3,x-4",
			auth:    true,
			status:  http.StatusPreconditionFailed,
			message: `"x"`,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := newTestServer(t, ipptest.Accept(""))

			var header http.Header
			if c.auth {
				header = s.token(t)
			}
			rr := s.do(http.MethodPost, c.path, header, untouched{t})

			if rr.Code != c.status {
				t.Errorf("expected status codes to match; got: %v, want %v", rr.Code, c.status)
			}
			if c.status == http.StatusUnauthorized && rr.Body.Len() != 0 {
				t.Errorf("expected an empty body, got %q", rr.Body.String())
			}
			if c.message != "" {
				var resp apiError
				if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
					t.Fatal(err)
				}
				if !strings.Contains(resp.Message, c.message) {
					t.Errorf("expected message %q to contain %q", resp.Message, c.message)
				}
			}
			if len(s.cups.Jobs()) != 0 {
				t.Error("expected no job to be submitted")
			}
		})
	}
}

func TestPrintHandlerBackendRejects(t *testing.T) {
	s := newTestServer(t, func(job ipptest.Job) *ipp.Message {
		return &ipp.Message{Version: ipp.DefaultVersion, Code: 0x0400, RequestID: job.Request.RequestID}
	})

	rr := s.do(http.MethodPost, "/printers/lobby/print"+printQuery, s.token(t), strings.NewReader("doc"))
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected status codes to match; got: %v, want %v", rr.Code, http.StatusInternalServerError)
	}

	var resp apiError
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(resp.Message, "0x0400") {
		t.Errorf("expected an opaque message, got %q", resp.Message)
	}
}
