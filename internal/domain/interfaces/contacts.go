package interfaces

import domaintypes "blindrelay/internal/domain/types"

// ContactStore persists peer public keys under local aliases.
type ContactStore interface {
	SaveContact(contact domaintypes.Contact) error
	LoadContact(alias domaintypes.Alias) (domaintypes.Contact, bool, error)
	ListContacts() ([]domaintypes.Contact, error)
}
