package marklist

import (
	"bytes"
	"context"
	"crypto/tls"
	"net/http/cookiejar"
	"net/url"
	"time"

	"marklist-backend/lib/restyutil"
	"marklist-backend/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

// transient statuses worth another attempt
var retryStatuses = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

const maxAttempts = 4

// Endpoints are the three form-POST driven pages of the results portal.
type Endpoints struct {
	LoginURL  string
	PickerURL string
	ReportURL string
}

func EndpointsFromBase(base string) (Endpoints, error) {
	u, err := url.Parse(base)
	if err != nil {
		return Endpoints{}, err
	}
	return Endpoints{
		LoginURL:  u.JoinPath("default.aspx").String(),
		PickerURL: u.JoinPath("marklist.aspx").String(),
		ReportURL: u.JoinPath("marklist_report.aspx").String(),
	}, nil
}

// Page is the most recently fetched document plus its raw body. It is
// replaced wholesale on every response and is only meaningful relative
// to the Session that produced it.
type Page struct {
	URL  string
	Doc  *goquery.Document
	Body []byte
}

type SessionOptions struct {
	BaseURL   string
	UserAgent string
	// InsecureSkipVerify disables TLS certificate validation. The
	// target deployment serves an invalid certificate, so talking to
	// it at all requires opting out of verification. This is a known
	// trust trade-off carried by every client of this portal, not a
	// shortcut: leave it off for any deployment with a valid cert.
	InsecureSkipVerify bool
	// Debug, when set, dumps full request/response transcripts.
	Debug restyutil.InstrumentOutput
}

// Session owns the cookie jar and header policy for one authenticated
// run. Postbacks on a single Session must be strictly sequential: the
// server keeps per-session page state and interleaved postbacks
// desynchronize it. Run independent Sessions for parallelism instead.
type Session struct {
	http *resty.Client
	// previous page URL, sent as the referer of the next request
	lastURL string
}

func NewSession(opts SessionOptions) (*Session, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.SetTimeout(time.Second * 45)
	client.SetHeaders(map[string]string{
		"User-Agent":                userAgent,
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
		"Upgrade-Insecure-Requests": "1",
		"Origin":                    base.Scheme + "://" + base.Host,
	})
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(base.Hostname()))

	if opts.InsecureSkipVerify {
		client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}

	// Retrying POSTs is safe only because the server tolerates
	// duplicate postbacks: resubmitting the same form state yields the
	// same page state.
	client.SetRetryCount(maxAttempts - 1)
	client.SetRetryWaitTime(time.Second)
	client.SetRetryMaxWaitTime(time.Second * 8)
	client.AddRetryCondition(func(res *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return retryStatuses[res.StatusCode()]
	})

	telemetry.InstrumentResty(client, "scrapers/marklist/http")
	restyutil.InstrumentClient(client, opts.Debug)

	return &Session{
		http:    client,
		lastURL: opts.BaseURL,
	}, nil
}

func (s *Session) Get(ctx context.Context, link string) (*Page, error) {
	res, err := s.http.R().
		SetContext(ctx).
		SetHeader("Referer", s.lastURL).
		Get(link)
	return s.toPage(link, res, err)
}

func (s *Session) PostForm(ctx context.Context, link string, form map[string]string) (*Page, error) {
	res, err := s.http.R().
		SetContext(ctx).
		SetHeader("Referer", s.lastURL).
		SetFormData(form).
		Post(link)
	return s.toPage(link, res, err)
}

func (s *Session) toPage(link string, res *resty.Response, err error) (*Page, error) {
	if err != nil {
		return nil, err
	}
	if res.StatusCode() != 200 {
		return nil, &TransportError{URL: link, Status: res.StatusCode()}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return nil, err
	}

	s.lastURL = link
	return &Page{
		URL:  link,
		Doc:  doc,
		Body: res.Body(),
	}, nil
}
