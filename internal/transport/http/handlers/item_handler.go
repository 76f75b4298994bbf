package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/vedran77/geev/internal/domain"
	"github.com/vedran77/geev/internal/mockapi"
	"github.com/vedran77/geev/internal/repository"
	"github.com/vedran77/geev/internal/transport/http/middleware"
	"github.com/vedran77/geev/pkg/validator"
)

// maxPageLimit caps ?limit= on cursor pages.
const maxPageLimit = 100

// UserLookup resolves the caller to a full user record.
type UserLookup interface {
	User(ctx context.Context, id string) (*domain.User, error)
}

type ItemHandler struct {
	items    *mockapi.ItemsAPI
	messages *mockapi.MessagesAPI
	users    UserLookup
	logger   *zap.Logger
}

func NewItemHandler(items *mockapi.ItemsAPI, messages *mockapi.MessagesAPI, users UserLookup, logger *zap.Logger) *ItemHandler {
	return &ItemHandler{items: items, messages: messages, users: users, logger: logger}
}

// List serves the feed. With ?before= it returns one cursor page instead
// of the filtered collection.
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if q.Has("before") {
		before, err := time.Parse(time.RFC3339Nano, q.Get("before"))
		if err != nil {
			writeValidationErrors(w, validator.ValidationErrors{"before": "Must be an RFC 3339 timestamp"})
			return
		}
		limit := 20
		if raw := q.Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > maxPageLimit {
				writeValidationErrors(w, validator.ValidationErrors{"limit": "Must be between 1 and 100"})
				return
			}
			limit = n
		}

		items, err := h.items.ListItemsBefore(r.Context(), before, limit)
		if err != nil {
			writeAPIError(w, h.logger, "list items page", err)
			return
		}
		writeJSON(w, http.StatusOK, items)
		return
	}

	filter, errs := parseFilter(q)
	if errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	items, err := h.items.ListItems(r.Context(), filter)
	if err != nil {
		writeAPIError(w, h.logger, "list items", err)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.items.GetItem(r.Context(), r.PathValue("id"))
	if err != nil {
		writeAPIError(w, h.logger, "get item", err)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.items.Categories())
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input domain.CreateItemInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidateItem(input.Title, input.Description, input.Images, input.Category.Valid(), input.Condition.Valid()); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	owner, err := h.users.User(r.Context(), userID)
	if err != nil {
		writeAPIError(w, h.logger, "lookup owner", err)
		return
	}

	item, err := h.items.CreateItem(r.Context(), owner, input)
	if err != nil {
		writeAPIError(w, h.logger, "create item", err)
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	itemID := r.PathValue("id")

	var patch domain.ItemPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validateItemPatch(patch); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	if err := h.items.CheckOwner(r.Context(), itemID, userID); err != nil {
		writeAPIError(w, h.logger, "check owner", err)
		return
	}

	item, err := h.items.UpdateItem(r.Context(), itemID, patch)
	if err != nil {
		writeAPIError(w, h.logger, "update item", err)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	itemID := r.PathValue("id")

	if err := h.items.CheckOwner(r.Context(), itemID, userID); err != nil {
		writeAPIError(w, h.logger, "check owner", err)
		return
	}

	if err := h.items.DeleteItem(r.Context(), itemID); err != nil {
		writeAPIError(w, h.logger, "delete item", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ItemHandler) View(w http.ResponseWriter, r *http.Request) {
	h.increment(w, r, repository.CounterViews)
}

func (h *ItemHandler) Interest(w http.ResponseWriter, r *http.Request) {
	h.increment(w, r, repository.CounterInterested)
}

func (h *ItemHandler) increment(w http.ResponseWriter, r *http.Request, counter repository.Counter) {
	item, err := h.items.IncrementCounter(r.Context(), r.PathValue("id"), counter)
	if err != nil {
		writeAPIError(w, h.logger, "increment "+string(counter), err)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

type contactResponse struct {
	Conversation *domain.Conversation `json:"conversation"`
	Message      *domain.Message      `json:"message"`
}

// Contact sends the first message to an item's owner, opening the
// conversation when needed.
func (h *ItemHandler) Contact(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidateMessage(input.Content); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	conv, msg, err := h.messages.ContactOwner(r.Context(), userID, r.PathValue("id"), input.Content)
	if err != nil {
		writeAPIError(w, h.logger, "contact owner", err)
		return
	}

	writeJSON(w, http.StatusCreated, contactResponse{Conversation: conv, Message: msg})
}

// Messages lists the caller's messages about an item.
func (h *ItemHandler) Messages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	msgs, err := h.messages.ListItemMessages(r.Context(), r.PathValue("id"))
	if err != nil {
		writeAPIError(w, h.logger, "list item messages", err)
		return
	}

	out := make([]*domain.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.SenderID == userID || m.ReceiverID == userID {
			out = append(out, m)
		}
	}

	writeJSON(w, http.StatusOK, out)
}

func validateItemPatch(p domain.ItemPatch) validator.ValidationErrors {
	errs := validator.ValidateItemPatch(p.Title, p.Description, p.Images)
	if p.Category != nil && !p.Category.Valid() {
		errs.Add("category", "Invalid category")
	}
	if p.Condition != nil && !p.Condition.Valid() {
		errs.Add("condition", "Invalid condition")
	}
	if p.Status != nil && !p.Status.Valid() {
		errs.Add("status", "Invalid status")
	}
	return errs
}

// parseFilter reads the feed filter from the query string. condition and
// tag may repeat; lat, lon and radius go together.
func parseFilter(q url.Values) (domain.Filter, validator.ValidationErrors) {
	var f domain.Filter
	errs := make(validator.ValidationErrors)

	if raw := q.Get("category"); raw != "" {
		c := domain.Category(raw)
		if c.Valid() {
			f.Category = &c
		} else {
			errs.Add("category", "Invalid category")
		}
	}

	for _, raw := range q["condition"] {
		c := domain.Condition(raw)
		if !c.Valid() {
			errs.Add("condition", "Invalid condition")
			break
		}
		f.Conditions = append(f.Conditions, c)
	}

	f.Search = q.Get("search")
	f.Tags = q["tag"]

	if q.Has("lat") || q.Has("lon") || q.Has("radius") {
		lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
		lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
		radius, errRadius := strconv.ParseFloat(q.Get("radius"), 64)
		if errLat != nil || errLon != nil || errRadius != nil || radius < 0 {
			errs.Add("near", "lat, lon and radius must all be numbers")
		} else {
			f.Near = &domain.Area{Latitude: lat, Longitude: lon, RadiusKm: radius}
		}
	}

	if raw := q.Get("maxDistance"); raw != "" {
		d, err := strconv.ParseFloat(raw, 64)
		if err != nil || d < 0 {
			errs.Add("maxDistance", "Must be a positive number")
		} else {
			f.MaxDistance = &d
		}
	}

	if raw := q.Get("urgent"); raw != "" {
		u, err := strconv.ParseBool(raw)
		if err != nil {
			errs.Add("urgent", "Must be true or false")
		} else {
			f.IsUrgent = &u
		}
	}

	return f, errs
}
