package app

import (
	"strings"

	"github.com/elllyers/ineza/internal/domain"
)

// AdminList is the configured allow-list of admin user ids.
type AdminList struct {
	ids map[string]struct{}
}

// NewAdminList builds an allow-list, trimming ids and dropping empties.
func NewAdminList(ids []string) AdminList {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			set[trimmed] = struct{}{}
		}
	}
	return AdminList{ids: set}
}

// Contains reports whether userID is an admin.
func (a AdminList) Contains(userID string) bool {
	_, ok := a.ids[userID]
	return ok
}

// Identify resolves a verified user id into the caller identity. An empty id
// yields nil (anonymous).
func (a AdminList) Identify(userID string) *domain.Identity {
	if userID == "" {
		return nil
	}
	return &domain.Identity{UserID: userID, IsAdmin: a.Contains(userID)}
}

func requireUser(caller *domain.Identity) error {
	if !caller.Authenticated() {
		return ErrUnauthenticated
	}
	return nil
}

func requireAdmin(caller *domain.Identity) error {
	if err := requireUser(caller); err != nil {
		return err
	}
	if !caller.Admin() {
		return ErrAdminRequired
	}
	return nil
}
