// Package access decides who may act on an application's documents.
package access

import (
	"fmt"

	"certdocs/internal/model"
)

// Intent is the kind of access requested.
type Intent int

const (
	Read Intent = iota
	WriteCreate
	WriteDelete
)

func (i Intent) String() string {
	switch i {
	case Read:
		return "read"
	case WriteCreate:
		return "write-create"
	case WriteDelete:
		return "write-delete"
	default:
		return fmt.Sprintf("intent(%d)", int(i))
	}
}

// Evaluator is a pure decision function over actor and application state.
type Evaluator struct {
	// PrivilegedWrite lets reviewers and administrators create and delete documents on
	// applications they do not own. Status rules still apply.
	PrivilegedWrite bool
}

// Check returns nil when the actor may perform intent on the application,
// or an ErrAccessDenied / ErrInvalidState error otherwise.
func (e Evaluator) Check(actor model.Actor, snap model.ApplicationSnapshot, intent Intent) error {
	subject := "application " + snap.ID

	privileged := actor.Role.Privileged()
	if privileged && intent == Read {
		return nil
	}
	elevated := privileged && e.PrivilegedWrite

	if !elevated && (actor.ID == "" || actor.ID != snap.OwnerID) {
		return model.NewError(model.ErrAccessDenied, subject, "you do not have access to this application")
	}

	switch intent {
	case WriteCreate:
		if !snap.Status.Mutable() {
			return model.NewError(model.ErrInvalidState, subject,
				fmt.Sprintf("cannot modify a submitted application (status %s)", snap.Status))
		}
	case WriteDelete:
		if snap.Status != model.StatusDraft {
			return model.NewError(model.ErrInvalidState, subject,
				fmt.Sprintf("documents can only be deleted while the application is a draft (status %s)", snap.Status))
		}
	}
	return nil
}

// Allowed is Check reduced to a boolean.
func (e Evaluator) Allowed(actor model.Actor, snap model.ApplicationSnapshot, intent Intent) bool {
	return e.Check(actor, snap, intent) == nil
}
