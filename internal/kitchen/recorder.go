package kitchen

import (
	"strings"

	"github.com/google/uuid"
	"github.com/vibedrinks/api/internal/enum"
)

// RecorderConfig holds the ingredient picker settings.
type RecorderConfig struct {
	// ConsumableCategories are matched case-insensitively as substrings of
	// the category name.
	ConsumableCategories []string
	CandidateLimit       int
	DefaultQuantity      int32
	DefaultDeductStock   bool
}

// DefaultRecorderConfig returns the settings the dashboard ships with.
func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		ConsumableCategories: enum.ConsumableCategories,
		CandidateLimit:       10,
		DefaultQuantity:      1,
		DefaultDeductStock:   true,
	}
}

// SelectedIngredient is one ingredient picked for the staged order item.
type SelectedIngredient struct {
	ProductID         uuid.UUID
	Quantity          int32
	ShouldDeductStock bool
}

// Recorder keeps the ingredient selection of the open dialog.
// Not safe for concurrent use; the Controller owns it.
type Recorder struct {
	cfg      RecorderConfig
	search   string
	selected []SelectedIngredient
}

func NewRecorder(cfg RecorderConfig) *Recorder {
	return &Recorder{cfg: cfg}
}

// Candidates returns the products that may be picked as ingredients: in a
// consumable category, in stock, and matching the search term. At most
// CandidateLimit are returned, in the order products were supplied.
func (r *Recorder) Candidates(products []Product, categories []Category) []Product {
	allowed := make(map[uuid.UUID]bool)
	for _, c := range categories {
		name := strings.ToUpper(c.Name)
		for _, want := range r.cfg.ConsumableCategories {
			if strings.Contains(name, strings.ToUpper(want)) {
				allowed[c.ID] = true
				break
			}
		}
	}

	search := strings.ToLower(r.search)
	var out []Product
	for _, p := range products {
		if r.cfg.CandidateLimit > 0 && len(out) == r.cfg.CandidateLimit {
			break
		}
		if !allowed[p.CategoryID] || p.Stock <= 0 {
			continue
		}
		if !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Toggle selects productID with the default quantity and deduct flag, or
// removes it if already selected.
func (r *Recorder) Toggle(productID uuid.UUID) {
	if i := r.index(productID); i >= 0 {
		r.selected = append(r.selected[:i], r.selected[i+1:]...)
		return
	}
	r.selected = append(r.selected, SelectedIngredient{
		ProductID:         productID,
		Quantity:          r.cfg.DefaultQuantity,
		ShouldDeductStock: r.cfg.DefaultDeductStock,
	})
}

// SetDeduct flips the deduct flag of a selected ingredient.
func (r *Recorder) SetDeduct(productID uuid.UUID, deduct bool) bool {
	i := r.index(productID)
	if i < 0 {
		return false
	}
	r.selected[i].ShouldDeductStock = deduct
	return true
}

// SetQuantity changes how much of a selected ingredient was used.
func (r *Recorder) SetQuantity(productID uuid.UUID, quantity int32) bool {
	i := r.index(productID)
	if i < 0 || quantity <= 0 {
		return false
	}
	r.selected[i].Quantity = quantity
	return true
}

func (r *Recorder) SetSearch(term string) {
	r.search = term
}

func (r *Recorder) Search() string {
	return r.search
}

// Selected returns a copy of the selection in pick order.
func (r *Recorder) Selected() []SelectedIngredient {
	out := make([]SelectedIngredient, len(r.selected))
	copy(out, r.selected)
	return out
}

// Reset clears the selection and the search term.
func (r *Recorder) Reset() {
	r.selected = nil
	r.search = ""
}

func (r *Recorder) index(productID uuid.UUID) int {
	for i, s := range r.selected {
		if s.ProductID == productID {
			return i
		}
	}
	return -1
}
