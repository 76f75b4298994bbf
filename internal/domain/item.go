package domain

import (
	"slices"
	"time"
)

type Category string

const (
	CategoryElectronics Category = "electronics"
	CategoryFurniture   Category = "furniture"
	CategoryClothing    Category = "clothing"
	CategoryBooks       Category = "books"
	CategoryToysGames   Category = "toys_games"
	CategorySports      Category = "sports"
	CategoryHomeGarden  Category = "home_garden"
	CategoryBeauty      Category = "beauty"
	CategoryFood        Category = "food"
	CategoryOther       Category = "other"
)

var categories = []Category{
	CategoryElectronics, CategoryFurniture, CategoryClothing, CategoryBooks, CategoryToysGames,
	CategorySports, CategoryHomeGarden, CategoryBeauty, CategoryFood, CategoryOther,
}

// Categories returns every item category in display order.
func Categories() []Category {
	return slices.Clone(categories)
}

func (c Category) Valid() bool {
	return slices.Contains(categories, c)
}

type Condition string

const (
	ConditionNew     Condition = "new"
	ConditionLikeNew Condition = "like_new"
	ConditionGood    Condition = "good"
	ConditionFair    Condition = "fair"
	ConditionPoor    Condition = "poor"
)

func (c Condition) Valid() bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// ItemStatus is a lightweight tag. Transitions between statuses are not
// checked: any status may replace any other.
type ItemStatus string

const (
	ItemStatusAvailable ItemStatus = "available"
	ItemStatusReserved  ItemStatus = "reserved"
	ItemStatusGiven     ItemStatus = "given"
	ItemStatusExpired   ItemStatus = "expired"
)

func (s ItemStatus) Valid() bool {
	switch s {
	case ItemStatusAvailable, ItemStatusReserved, ItemStatusGiven, ItemStatusExpired:
		return true
	}
	return false
}

type ItemLocation struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
	Address   string  `json:"address" yaml:"address"`
	City      string  `json:"city" yaml:"city"`
	ZipCode   string  `json:"zip_code" yaml:"zip_code"`
	// Distance in km from the viewer, when known.
	Distance *float64 `json:"distance,omitempty" yaml:"distance,omitempty"`
}

// OwnerSnapshot is the denormalized copy of the donor carried by an item.
type OwnerSnapshot struct {
	ID             string  `json:"id" yaml:"id"`
	FirstName      string  `json:"first_name" yaml:"first_name"`
	LastName       string  `json:"last_name" yaml:"last_name"`
	ProfilePicture *string `json:"profile_picture,omitempty" yaml:"profile_picture,omitempty"`
	Rating         float64 `json:"rating" yaml:"rating"`
	ResponseRate   int     `json:"response_rate" yaml:"response_rate"`
	ResponseTime   string  `json:"response_time" yaml:"response_time"`
}

// NewOwnerSnapshot builds the snapshot stamped on items created by u.
func NewOwnerSnapshot(u *User) OwnerSnapshot {
	return OwnerSnapshot{
		ID:             u.ID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		ProfilePicture: cloneString(u.ProfilePicture),
		Rating:         u.Rating,
		ResponseRate:   95,
		ResponseTime:   "quelques heures",
	}
}

// Refresh copies the user's current identity fields into the snapshot,
// keeping the response statistics.
func (o *OwnerSnapshot) Refresh(u *User) {
	o.FirstName = u.FirstName
	o.LastName = u.LastName
	o.ProfilePicture = cloneString(u.ProfilePicture)
	o.Rating = u.Rating
}

type Dimensions struct {
	Length *float64 `json:"length,omitempty" yaml:"length,omitempty"`
	Width  *float64 `json:"width,omitempty" yaml:"width,omitempty"`
	Height *float64 `json:"height,omitempty" yaml:"height,omitempty"`
	Weight *float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
}

type Pickup struct {
	Flexible      bool     `json:"flexible" yaml:"flexible"`
	AvailableDays []string `json:"available_days" yaml:"available_days"`
	TimeSlots     []string `json:"time_slots" yaml:"time_slots"`
	Instructions  *string  `json:"instructions,omitempty" yaml:"instructions,omitempty"`
}

type Item struct {
	ID              string        `json:"id" yaml:"id"`
	Title           string        `json:"title" yaml:"title"`
	Description     string        `json:"description" yaml:"description"`
	Category        Category      `json:"category" yaml:"category"`
	Condition       Condition     `json:"condition" yaml:"condition"`
	Images          []string      `json:"images" yaml:"images"`
	Location        ItemLocation  `json:"location" yaml:"location"`
	Owner           OwnerSnapshot `json:"owner" yaml:"owner"`
	Status          ItemStatus    `json:"status" yaml:"status"`
	Dimensions      *Dimensions   `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	Pickup          Pickup        `json:"pickup" yaml:"pickup"`
	CreatedAt       time.Time     `json:"created_at" yaml:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" yaml:"updated_at"`
	ViewCount       int           `json:"view_count" yaml:"view_count"`
	InterestedCount int           `json:"interested_count" yaml:"interested_count"`
	Tags            []string      `json:"tags" yaml:"tags"`
	IsUrgent        bool          `json:"is_urgent" yaml:"is_urgent"`
	ExpiresAt       *time.Time    `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}

// Clone returns a deep copy of the item.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	c := *i
	c.Images = slices.Clone(i.Images)
	c.Tags = slices.Clone(i.Tags)
	c.Location.Distance = cloneFloat(i.Location.Distance)
	c.Owner.ProfilePicture = cloneString(i.Owner.ProfilePicture)
	c.Dimensions = i.Dimensions.clone()
	c.Pickup = i.Pickup.clone()
	c.ExpiresAt = cloneTime(i.ExpiresAt)
	return &c
}

func (d *Dimensions) clone() *Dimensions {
	if d == nil {
		return nil
	}
	return &Dimensions{
		Length: cloneFloat(d.Length),
		Width:  cloneFloat(d.Width),
		Height: cloneFloat(d.Height),
		Weight: cloneFloat(d.Weight),
	}
}

func (p Pickup) clone() Pickup {
	p.AvailableDays = slices.Clone(p.AvailableDays)
	p.TimeSlots = slices.Clone(p.TimeSlots)
	p.Instructions = cloneString(p.Instructions)
	return p
}

// CreateItemInput is what a donor fills in. The system assigns id, owner,
// status, counters and timestamps.
type CreateItemInput struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Category    Category     `json:"category"`
	Condition   Condition    `json:"condition"`
	Images      []string     `json:"images"`
	Location    ItemLocation `json:"location"`
	Dimensions  *Dimensions  `json:"dimensions,omitempty"`
	Pickup      Pickup       `json:"pickup"`
	Tags        []string     `json:"tags"`
	IsUrgent    bool         `json:"is_urgent"`
	ExpiresAt   *time.Time   `json:"expires_at,omitempty"`
}

// NewItem builds an available item from the input.
func (in CreateItemInput) NewItem(id string, owner OwnerSnapshot, now time.Time) *Item {
	item := &Item{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Condition:   in.Condition,
		Images:      slices.Clone(in.Images),
		Location:    in.Location,
		Owner:       owner,
		Status:      ItemStatusAvailable,
		Dimensions:  in.Dimensions.clone(),
		Pickup:      in.Pickup.clone(),
		CreatedAt:   now,
		UpdatedAt:   now,
		Tags:        slices.Clone(in.Tags),
		IsUrgent:    in.IsUrgent,
		ExpiresAt:   cloneTime(in.ExpiresAt),
	}
	item.Location.Distance = cloneFloat(in.Location.Distance)
	if item.Images == nil {
		item.Images = []string{}
	}
	if item.Tags == nil {
		item.Tags = []string{}
	}
	return item
}

// ItemPatch is a partial item update. Nil fields are left unchanged.
type ItemPatch struct {
	Title       *string       `json:"title,omitempty"`
	Description *string       `json:"description,omitempty"`
	Category    *Category     `json:"category,omitempty"`
	Condition   *Condition    `json:"condition,omitempty"`
	Images      []string      `json:"images,omitempty"`
	Location    *ItemLocation `json:"location,omitempty"`
	Dimensions  *Dimensions   `json:"dimensions,omitempty"`
	Pickup      *Pickup       `json:"pickup,omitempty"`
	Tags        []string      `json:"tags,omitempty"`
	IsUrgent    *bool         `json:"is_urgent,omitempty"`
	ExpiresAt   *time.Time    `json:"expires_at,omitempty"`
	Status      *ItemStatus   `json:"status,omitempty"`
}

// Apply returns a copy of item with the patch merged in and UpdatedAt set.
func (p ItemPatch) Apply(item *Item, now time.Time) *Item {
	out := item.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Category != nil {
		out.Category = *p.Category
	}
	if p.Condition != nil {
		out.Condition = *p.Condition
	}
	if p.Images != nil {
		out.Images = slices.Clone(p.Images)
	}
	if p.Location != nil {
		out.Location = *p.Location
		out.Location.Distance = cloneFloat(p.Location.Distance)
	}
	if p.Dimensions != nil {
		out.Dimensions = p.Dimensions.clone()
	}
	if p.Pickup != nil {
		out.Pickup = p.Pickup.clone()
	}
	if p.Tags != nil {
		out.Tags = slices.Clone(p.Tags)
	}
	if p.IsUrgent != nil {
		out.IsUrgent = *p.IsUrgent
	}
	if p.ExpiresAt != nil {
		out.ExpiresAt = cloneTime(p.ExpiresAt)
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	out.UpdatedAt = now
	return out
}
