package service

import (
	"context"

	"recipeshare/internal/domain"
	"recipeshare/internal/repository"
)

// CanSee aplica la regla de visibilidad con la relacion de seguimiento ya resuelta.
// viewerID vacio es un visitante anonimo.
func CanSee(r domain.Recipe, viewerID string, followsCreator bool) bool {
	if viewerID != "" && r.CreatorID == viewerID {
		return true
	}
	if !r.Published() {
		return false
	}
	switch r.Visibility {
	case domain.VisibilityPublic:
		return true
	case domain.VisibilityFollowers:
		return viewerID != "" && followsCreator
	default:
		return false
	}
}

// needsFollowCheck indica si la decision depende de la arista viewer -> creador.
func needsFollowCheck(r domain.Recipe, viewerID string) bool {
	return viewerID != "" &&
		r.CreatorID != viewerID &&
		r.Published() &&
		r.Visibility == domain.VisibilityFollowers
}

type VisibilityChecker struct {
	follows repository.FollowRepository
}

func NewVisibilityChecker(follows repository.FollowRepository) *VisibilityChecker {
	return &VisibilityChecker{follows: follows}
}

// IsVisible solo consulta el grafo cuando la receta es published+followers de otro autor.
func (v *VisibilityChecker) IsVisible(ctx context.Context, r domain.Recipe, viewerID string) (bool, error) {
	if !needsFollowCheck(r, viewerID) {
		return CanSee(r, viewerID, false), nil
	}
	follows, err := v.follows.Exists(ctx, viewerID, r.CreatorID)
	if err != nil {
		return false, err
	}
	return CanSee(r, viewerID, follows), nil
}
