package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/vedran77/geev/internal/domain"
	"github.com/vedran77/geev/internal/mockapi"
	"github.com/vedran77/geev/internal/repository"
)

// --- Auth ---

func (c *Client) Login(ctx context.Context, creds mockapi.Credentials) (*mockapi.AuthResponse, error) {
	var resp mockapi.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, creds, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, input mockapi.RegisterInput) (*mockapi.AuthResponse, error) {
	var resp mockapi.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, input, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) LoginWithGoogle(ctx context.Context) (*mockapi.AuthResponse, error) {
	var resp mockapi.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/google", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
}

// UpdateProfile patches the caller's profile. The server takes the user
// from the token, so userID is not sent.
func (c *Client) UpdateProfile(ctx context.Context, _ string, patch domain.ProfilePatch) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodPatch, "/profile", nil, patch, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// --- Items ---

func (c *Client) ListItems(ctx context.Context, f domain.Filter) ([]*domain.Item, error) {
	var items []*domain.Item
	if err := c.do(ctx, http.MethodGet, "/items", filterQuery(f), nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) ListItemsBefore(ctx context.Context, before time.Time, limit int) ([]*domain.Item, error) {
	q := url.Values{}
	q.Set("before", before.UTC().Format(time.RFC3339Nano))
	q.Set("limit", strconv.Itoa(limit))

	var items []*domain.Item
	if err := c.do(ctx, http.MethodGet, "/items", q, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	var item domain.Item
	if err := c.do(ctx, http.MethodGet, "/items/"+url.PathEscape(id), nil, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateItem posts a listing. The server derives the owner from the token;
// owner only guards against calling without a session.
func (c *Client) CreateItem(ctx context.Context, owner *domain.User, input domain.CreateItemInput) (*domain.Item, error) {
	if owner == nil {
		return nil, mockapi.ErrNotAuthenticated
	}
	var item domain.Item
	if err := c.do(ctx, http.MethodPost, "/items", nil, input, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) (*domain.Item, error) {
	var item domain.Item
	if err := c.do(ctx, http.MethodPatch, "/items/"+url.PathEscape(id), nil, patch, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) DeleteItem(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/items/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) IncrementCounter(ctx context.Context, id string, counter repository.Counter) (*domain.Item, error) {
	action := "view"
	if counter == repository.CounterInterested {
		action = "interest"
	}
	var item domain.Item
	if err := c.do(ctx, http.MethodPost, "/items/"+url.PathEscape(id)+"/"+action, nil, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// RefreshOwner is a no-op: the server rewrites owner snapshots itself
// when the profile is patched.
func (c *Client) RefreshOwner(context.Context, *domain.User) (int, error) {
	return 0, nil
}

func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	var cats []domain.Category
	if err := c.do(ctx, http.MethodGet, "/categories", nil, nil, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

// --- Messages ---

// ListConversations lists the caller's conversations. userID is implied
// by the token.
func (c *Client) ListConversations(ctx context.Context, _ string) ([]*domain.Conversation, error) {
	var convs []*domain.Conversation
	if err := c.do(ctx, http.MethodGet, "/conversations", nil, nil, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	var msgs []*domain.Message
	if err := c.do(ctx, http.MethodGet, "/conversations/"+url.PathEscape(conversationID)+"/messages", nil, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (c *Client) SendMessage(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	body := map[string]any{
		"id":      msg.ID,
		"content": msg.Content,
		"type":    msg.Type,
	}
	var out domain.Message
	if err := c.do(ctx, http.MethodPost, "/conversations/"+url.PathEscape(msg.ConversationID)+"/messages", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ContactOwner sends the first message about an item to its owner.
func (c *Client) ContactOwner(ctx context.Context, itemID, content string) (*domain.Conversation, *domain.Message, error) {
	var resp struct {
		Conversation *domain.Conversation `json:"conversation"`
		Message      *domain.Message      `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/items/"+url.PathEscape(itemID)+"/messages", nil, map[string]string{"content": content}, &resp); err != nil {
		return nil, nil, err
	}
	return resp.Conversation, resp.Message, nil
}

// RefreshParticipant is a no-op for the same reason as RefreshOwner.
func (c *Client) RefreshParticipant(context.Context, *domain.User) (int, error) {
	return 0, nil
}

// filterQuery is the inverse of the server's query parsing.
func filterQuery(f domain.Filter) url.Values {
	q := url.Values{}
	if f.Category != nil {
		q.Set("category", string(*f.Category))
	}
	for _, c := range f.Conditions {
		q.Add("condition", string(c))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Near != nil {
		q.Set("lat", strconv.FormatFloat(f.Near.Latitude, 'f', -1, 64))
		q.Set("lon", strconv.FormatFloat(f.Near.Longitude, 'f', -1, 64))
		q.Set("radius", strconv.FormatFloat(f.Near.RadiusKm, 'f', -1, 64))
	}
	if f.MaxDistance != nil {
		q.Set("maxDistance", strconv.FormatFloat(*f.MaxDistance, 'f', -1, 64))
	}
	if f.IsUrgent != nil {
		q.Set("urgent", strconv.FormatBool(*f.IsUrgent))
	}
	for _, tag := range f.Tags {
		q.Add("tag", tag)
	}
	return q
}
