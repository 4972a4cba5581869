// Package ecoledirecte is a client for the EcoleDirecte school API, it only
// covers what is needed to compute averages: logging in and fetching grades.
package ecoledirecte

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"studytools/internal/components/assert"
	"studytools/internal/components/telemetry"
	"studytools/internal/failure"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_client_login  = "client.login"
	report_client_grades = "client.grades"
)

const (
	DefaultBaseUrl = "https://api.ecoledirecte.com"
	// the service rejects some default library user agents
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
)

const codeSuccess = 200

type Options struct {
	BaseUrl   string
	UserAgent string
	// RequestsPerSecond defaults to 2.
	RequestsPerSecond float64
	Timeout           time.Duration
	// BypassCloudflare wraps the transport so that requests look like they
	// come from a browser.
	BypassCloudflare bool
	// Output receives a dump of every http message when not nil.
	Output telemetry.MessageOutput
}

type Client struct {
	http *resty.Client
	tel  telemetry.API
}

func NewClient(opts Options, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("ecoledirecte", tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second * 30
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(opts.BaseUrl)
	httpClient.SetTimeout(opts.Timeout)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	if opts.BypassCloudflare {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	httpClient.SetHeader("user-agent", opts.UserAgent)

	// max burst >= requests per second just means that no requests will be dropped
	burst := int(opts.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tel, opts.Output)

	return &Client{http: httpClient, tel: tel}, nil
}

// encodeBody produces the `data=<json>` body every endpoint expects.
func encodeBody(payload any) (string, error) {
	serialized, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("data=%s", serialized), nil
}

func post[T any](ctx context.Context, c *Client, reportId, token, path string, query map[string]string, payload any) (envelope[T], error) {
	var out envelope[T]

	body, err := encodeBody(payload)
	if err != nil {
		c.tel.ReportBroken(reportId, fmt.Errorf("json marshal: %w", err))
		return out, err
	}

	req := c.http.R().
		SetContext(ctx).
		SetHeader("content-type", "text/plain").
		SetBody(body)
	if token != "" {
		req.SetHeader("X-Token", token)
	}
	if len(query) > 0 {
		req.SetQueryParams(query)
	}

	res, err := req.Post(path)
	if err != nil {
		return out, failure.Transport(fmt.Sprintf("request %s", path), err)
	}
	if res.StatusCode() != http.StatusOK {
		c.tel.ReportWarning(reportId, "unexpected http status", res.Status())
		return out, failure.RemoteRejection(fmt.Sprintf("%s answered with http status %s", path, res.Status()))
	}

	err = json.Unmarshal(res.Body(), &out)
	if err != nil {
		c.tel.ReportBroken(reportId, fmt.Errorf("json unmarshal: %w", err))
		return out, failure.Transport(fmt.Sprintf("decode %s", path), err)
	}
	if out.Code != codeSuccess {
		message := out.message()
		if message == "" {
			message = fmt.Sprintf("%s answered with code %d", path, out.Code)
		}
		return out, failure.RemoteRejection(message)
	}
	return out, nil
}

// Login authenticates and returns a session for the first account of the user.
func (c *Client) Login(ctx context.Context, identifier, secret string) (Session, error) {
	c.tel.ReportDebug(report_client_login, identifier)

	payload := map[string]any{
		"identifiant": identifier,
		"motdepasse":  secret,
	}
	res, err := post[loginData](ctx, c, report_client_login, "", "/v3/login.awp", nil, payload)
	if err != nil {
		return Session{}, err
	}
	if len(res.Data.Accounts) == 0 {
		return Session{}, failure.RemoteRejection("the login succeeded but no account is attached to it")
	}
	if res.Token == "" {
		c.tel.ReportBroken(report_client_login, "missing token in successful login")
		return Session{}, failure.RemoteRejection("the login succeeded but no token was returned")
	}

	return Session{
		Token:   res.Token,
		Account: res.Data.Accounts[0],
	}, nil
}

// Grades fetches every grade of the session's account. The service rotates
// tokens, so the session token is replaced when a new one is returned.
func (c *Client) Grades(ctx context.Context, session *Session) (Grades, error) {
	assert.NotNil(session)
	c.tel.ReportDebug(report_client_grades, session.Account.ID)

	res, err := post[gradesData](
		ctx, c,
		report_client_grades,
		session.Token,
		fmt.Sprintf("/v3/eleves/%d/notes.awp", session.Account.ID),
		map[string]string{"verbe": "get"},
		map[string]any{"token": session.Token},
	)
	if err != nil {
		return Grades{}, err
	}
	if res.Token != "" {
		session.Token = res.Token
	}

	c.tel.ReportCount(report_client_grades, int64(len(res.Data.Notes)))
	return Grades{
		Grades:  res.Data.Notes,
		Periods: res.Data.Periodes,
	}, nil
}
