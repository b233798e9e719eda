// Package calendar connects the service to Google Calendar. It creates one
// event with a Meet conference per booking and persists the admin's OAuth2
// token through the settings store.
package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"interview-scheduler/internal/booking"
	"interview-scheduler/internal/store"
)

// ErrNotConnected is returned when no admin token has been stored.
var ErrNotConnected = errors.New("calendar: not connected")

// TokenStore persists the serialized OAuth2 token.
type TokenStore interface {
	GetIntegrationToken(ctx context.Context) ([]byte, error)
	PutIntegrationToken(ctx context.Context, token []byte) error
	DeleteIntegrationToken(ctx context.Context) (bool, error)
}

// Config holds OAuth2 and calendar settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	CalendarID   string
	// Endpoint overrides the Calendar API base URL (tests).
	Endpoint string
	// TokenURL overrides the OAuth2 token endpoint (tests).
	TokenURL string
}

type Client struct {
	oauth      *oauth2.Config
	tokens     TokenStore
	calendarID string
	endpoint   string
	loc        *time.Location
	log        *slog.Logger
}

var _ booking.Calendar = (*Client)(nil)

// New returns nil when the OAuth client is not configured; callers treat a
// nil *Client as "integration disabled".
func New(cfg Config, tokens TokenStore, loc *time.Location, logger *slog.Logger) *Client {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil
	}
	endpoint := google.Endpoint
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	calID := cfg.CalendarID
	if calID == "" {
		calID = "primary"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{gcal.CalendarEventsScope},
			Endpoint:     endpoint,
		},
		tokens:     tokens,
		calendarID: calID,
		endpoint:   cfg.Endpoint,
		loc:        loc,
		log:        logger,
	}
}

// AuthCodeURL starts the consent flow. Offline access with forced consent
// makes Google return a refresh token every time.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades the authorization code for a token and stores it.
func (c *Client) Exchange(ctx context.Context, code string) error {
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange code: %w", err)
	}
	return c.saveToken(ctx, tok)
}

// Status reports whether a token is stored and when its access token expires.
func (c *Client) Status(ctx context.Context) (bool, time.Time, error) {
	tok, err := c.loadToken(ctx)
	if errors.Is(err, ErrNotConnected) {
		return false, time.Time{}, nil
	}
	if err != nil {
		return false, time.Time{}, err
	}
	return true, tok.Expiry, nil
}

// Disconnect forgets the stored token.
func (c *Client) Disconnect(ctx context.Context) error {
	if _, err := c.tokens.DeleteIntegrationToken(ctx); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// CreateEvent inserts the interview event with a Meet conference and invites
// the applicant.
func (c *Client) CreateEvent(ctx context.Context, req booking.EventRequest) (*booking.Event, error) {
	srv, err := c.service(ctx)
	if err != nil {
		return nil, err
	}

	ev := &gcal.Event{
		Summary:     req.Summary,
		Description: req.Description,
		Start: &gcal.EventDateTime{
			DateTime: req.Start.In(c.loc).Format(time.RFC3339),
			TimeZone: c.loc.String(),
		},
		End: &gcal.EventDateTime{
			DateTime: req.End.In(c.loc).Format(time.RFC3339),
			TimeZone: c.loc.String(),
		},
		Attendees: []*gcal.EventAttendee{
			{Email: req.Email, DisplayName: req.Name},
		},
		ConferenceData: &gcal.ConferenceData{
			CreateRequest: &gcal.CreateConferenceRequest{
				RequestId:             uuid.NewString(),
				ConferenceSolutionKey: &gcal.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		},
	}

	created, err := srv.Events.Insert(c.calendarID, ev).
		ConferenceDataVersion(1).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return &booking.Event{ID: created.Id, MeetLink: meetLink(created)}, nil
}

// DeleteEvent removes an event; an event that is already gone counts as
// deleted.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	srv, err := c.service(ctx)
	if err != nil {
		return err
	}
	err = srv.Events.Delete(c.calendarID, eventID).SendUpdates("all").Context(ctx).Do()
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// Event is a calendar entry as shown to the admin.
type Event struct {
	ID        string    `json:"id"`
	Summary   string    `json:"summary"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	MeetLink  string    `json:"meetLink,omitempty"`
	Status    string    `json:"status"`
}

// ListEvents returns events between from and to, ordered by start time.
func (c *Client) ListEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	srv, err := c.service(ctx)
	if err != nil {
		return nil, err
	}
	events, err := srv.Events.List(c.calendarID).
		SingleEvents(true).
		OrderBy("startTime").
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		MaxResults(250).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	out := make([]Event, 0, len(events.Items))
	for _, item := range events.Items {
		ev := Event{
			ID:       item.Id,
			Summary:  item.Summary,
			Status:   item.Status,
			MeetLink: meetLink(item),
		}
		if item.Start != nil {
			ev.StartTime = parseEventTime(item.Start)
		}
		if item.End != nil {
			ev.EndTime = parseEventTime(item.End)
		}
		out = append(out, ev)
	}
	return out, nil
}

func parseEventTime(dt *gcal.EventDateTime) time.Time {
	if dt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
			return t
		}
	} else if dt.Date != "" {
		if t, err := time.Parse("2006-01-02", dt.Date); err == nil {
			return t
		}
	}
	return time.Time{}
}

func meetLink(ev *gcal.Event) string {
	if ev.HangoutLink != "" {
		return ev.HangoutLink
	}
	if ev.ConferenceData != nil {
		for _, ep := range ev.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" {
				return ep.Uri
			}
		}
	}
	return ""
}

func (c *Client) service(ctx context.Context) (*gcal.Service, error) {
	tok, err := c.loadToken(ctx)
	if err != nil {
		return nil, err
	}
	ts := &persistingTokenSource{
		base:   c.oauth.TokenSource(context.WithoutCancel(ctx), tok),
		last:   tok.AccessToken,
		client: c,
	}
	httpClient := oauth2.NewClient(ctx, ts)

	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	srv, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return srv, nil
}

func (c *Client) loadToken(ctx context.Context) (*oauth2.Token, error) {
	raw, err := c.tokens.GetIntegrationToken(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return &tok, nil
}

func (c *Client) saveToken(ctx context.Context, tok *oauth2.Token) error {
	raw, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := c.tokens.PutIntegrationToken(ctx, raw); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}

// persistingTokenSource writes refreshed tokens back to the store so the next
// request does not refresh again.
type persistingTokenSource struct {
	base   oauth2.TokenSource
	last   string
	client *Client
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != p.last {
		p.last = tok.AccessToken
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.client.saveToken(ctx, tok); err != nil {
			p.client.log.Warn("refreshed calendar token not saved", "err", err)
		}
	}
	return tok, nil
}
