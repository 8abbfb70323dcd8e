package domain

import "time"

type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityFollowers Visibility = "followers"
)

func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityFollowers
}

type RecipeStatus string

const (
	StatusDraft     RecipeStatus = "draft"
	StatusPublished RecipeStatus = "published"
)

func (s RecipeStatus) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

type Ingredient struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity,omitempty"`
	Unit     string `json:"unit,omitempty"`
	Note     string `json:"note,omitempty"`
}

type Step struct {
	Instruction string `json:"instruction"`
}

type Recipe struct {
	ID          string       `json:"id"`
	CreatorID   string       `json:"creator_id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Ingredients []Ingredient `json:"ingredients"`
	Steps       []Step       `json:"steps"`
	PrepTime    *int         `json:"prep_time,omitempty"` // minutos
	CookTime    *int         `json:"cook_time,omitempty"` // minutos
	Servings    *int         `json:"servings,omitempty"`
	ImageURL    string       `json:"image_url,omitempty"`
	Visibility  Visibility   `json:"visibility"`
	Status      RecipeStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Published indica si la receta salio de borrador.
func (r Recipe) Published() bool {
	return r.Status == StatusPublished
}

// CreatorSummary son los datos del autor que acompañan cada fila del feed.
type CreatorSummary struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// FeedItem replica una fila de la vista recipe_feed.
type FeedItem struct {
	Recipe  Recipe         `json:"recipe"`
	Creator CreatorSummary `json:"creator"`
}

// FeedPage es una pagina del feed; NextCursor vacio indica fin.
type FeedPage struct {
	Items      []FeedItem `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
}
