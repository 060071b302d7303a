package printing

import (
	"context"
	"io"
	"math"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/coulterac/kprint/internal/auth"
	"github.com/coulterac/kprint/internal/ipp"
	"github.com/coulterac/kprint/internal/pages"
	"github.com/coulterac/kprint/internal/stream"
)

// ErrBackend wraps every failure talking to the print server. Its details
// are meant for logs, not for callers.
var ErrBackend = errors.New("print server error")

// SubmittedMessage is the message returned for accepted jobs.
const SubmittedMessage = "job submitted"

// forwardExitTimeout bounds how long Submit waits for the forwarding task
// once the print server is done with the document.
const forwardExitTimeout = 100 * time.Millisecond

var printJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "kprint_print_jobs_total",
	Help: "Count of print jobs sent to the print server",
}, []string{"printer", "outcome"})

var forwardedBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "kprint_forwarded_bytes_total",
	Help: "Document bytes forwarded to the print server",
}, []string{"printer"})

// Result describes an accepted job. JobLink is nil when the print server did
// not report a job URI.
type Result struct {
	Message string
	JobLink *string
}

// Jobs submits print jobs to the printers of a Registry.
type Jobs struct {
	reg          *Registry
	publicScheme string
	chunkSize    int
	l            log.Logger

	requestID int32
}

// NewJobs returns a Jobs for reg. Job links handed back to callers use
// publicScheme; chunkSize bounds each piece of forwarded document.
func NewJobs(reg *Registry, publicScheme string, chunkSize int, l log.Logger) *Jobs {
	if publicScheme == "" {
		publicScheme = "https"
	}
	if l == nil {
		l = log.NewNopLogger()
	}
	return &Jobs{reg: reg, publicScheme: publicScheme, chunkSize: chunkSize, l: l}
}

// Resolve looks up a printer by name. It does not touch the network, so it
// can run before any of the document is read.
func (j *Jobs) Resolve(name string) (*Backend, error) {
	return j.reg.Resolve(name)
}

// Request builds the Print-Job request for a job without its document.
func (j *Jobs) Request(b *Backend, id *auth.Identity, o Options, ranges []pages.Range) *ipp.Message {
	req := ipp.NewRequest(ipp.OpPrintJob, j.nextRequestID())

	req.Group(ipp.TagOperationAttributes).Add(
		ipp.URI("printer-uri", b.URI()),
		ipp.Name("requesting-user-name", id.Username),
		ipp.Name("job-name", o.Title),
		ipp.MimeMediaType("document-format", "application/octet-stream"),
	)

	job := req.Group(ipp.TagJobAttributes)
	job.Add(
		ipp.Keyword("sides", o.Sides.Keyword()),
		ipp.Keyword("print-color-mode", o.ColorMode.Keyword()),
	)
	// No page-ranges attribute means the whole document.
	if len(ranges) > 0 {
		rs := make([]ipp.RangeOfInteger, len(ranges))
		for i, r := range ranges {
			rs[i] = ipp.RangeOfInteger{Lower: int32(r.Start), Upper: int32(r.End)}
		}
		job.Add(ipp.Ranges("page-ranges", rs...))
	}
	job.Add(ipp.Integer("copies", int32(o.Copies)))

	return req
}

// nextRequestID returns request ids in 1..math.MaxInt32, starting over at 1.
func (j *Jobs) nextRequestID() int32 {
	for {
		cur := atomic.LoadInt32(&j.requestID)
		next := int32(1)
		if cur > 0 && cur < math.MaxInt32 {
			next = cur + 1
		}
		if atomic.CompareAndSwapInt32(&j.requestID, cur, next) {
			return next
		}
	}
}

// Submit sends a job to b with body as its document. The body is forwarded
// while the request is in flight, never held in memory as a whole.
//
// Once the print server answers, Submit stops the forwarding task and waits
// up to forwardExitTimeout for it. A task blocked reading a stalled body
// exits when that read returns, which the HTTP server bounds with its read
// timeout.
func (j *Jobs) Submit(ctx context.Context, b *Backend, id *auth.Identity, o Options, ranges []pages.Range, body io.Reader) (*Result, error) {
	req := j.Request(b, id, o, ranges)

	doc := stream.Forward(body, j.chunkSize, log.With(j.l, "printer", b.Name))

	j.l.Log("level", "debug", "msg", "sending job to printer", "printer", b.Name, "user", id.Username, "requestId", req.RequestID)
	resp, err := b.client.Send(ctx, req, doc)
	doc.Close()
	select {
	case <-doc.Done():
	case <-time.After(forwardExitTimeout):
		j.l.Log("level", "warn", "msg", "body still being read after the print server answered", "printer", b.Name)
	}
	forwardedBytesTotal.With(prometheus.Labels{"printer": b.Name}).Add(float64(doc.Forwarded()))
	if err != nil {
		printJobsTotal.With(prometheus.Labels{"printer": b.Name, "outcome": "error"}).Inc()
		return nil, errors.Wrap(ErrBackend, err.Error())
	}
	if !resp.StatusOK() {
		printJobsTotal.With(prometheus.Labels{"printer": b.Name, "outcome": "rejected"}).Inc()
		return nil, errors.Wrapf(ErrBackend, "print server rejected job with status 0x%04x", resp.Code)
	}
	printJobsTotal.With(prometheus.Labels{"printer": b.Name, "outcome": "submitted"}).Inc()

	return &Result{Message: SubmittedMessage, JobLink: j.jobLink(resp)}, nil
}

// jobLink returns the job-uri reported by the print server, rewritten to the
// public scheme. The print server is reached over its own scheme but links
// given to callers must match the gateway's.
func (j *Jobs) jobLink(resp *ipp.Message) *string {
	for _, g := range resp.Groups {
		a, ok := g.Get("job-uri")
		if !ok || a.Tag != ipp.TagURI {
			continue
		}
		raw, ok := a.StringValue()
		if !ok {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			j.l.Log("level", "warn", "msg", "print server returned an invalid job uri", "uri", raw, "err", err.Error())
			continue
		}
		u.Scheme = j.publicScheme
		link := u.String()
		return &link
	}
	return nil
}
