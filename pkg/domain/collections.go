package domain

// Collection names a stored collection (a table in the relational stores).
type Collection string

// Collections touched by the cage subsystem.
const (
	CollectionCages       Collection = "cages"
	CollectionHolding     Collection = "holding"
	CollectionBreeding    Collection = "breeding"
	CollectionStrains     Collection = "strains"
	CollectionMice        Collection = "mice"
	CollectionLitters     Collection = "litters"
	CollectionFiles       Collection = "files"
	CollectionNotes       Collection = "notes"
	CollectionIacucLinks  Collection = "cage_iacuc"
	CollectionUserLinks   Collection = "cage_users"
	CollectionTasks       Collection = "tasks"
	CollectionMaintenance Collection = "maintenance"
	CollectionReminders   Collection = "reminders"
	CollectionActivityLog Collection = "activity_log"
)

// CageKeyField is the column every cage-owned collection is keyed by.
const CageKeyField = "cage_id"

// dependentRefColumns maps each dependent collection to the column carried as
// DependentRecord.Ref.
var dependentRefColumns = map[Collection]string{
	CollectionMice:        "mouse_id",
	CollectionLitters:     "dom",
	CollectionFiles:       "file_path",
	CollectionNotes:       "note_text",
	CollectionIacucLinks:  "iacuc_id",
	CollectionUserLinks:   "user_id",
	CollectionTasks:       "title",
	CollectionMaintenance: "comments",
	CollectionReminders:   "task_title",
}

// DependentCollections returns the collections owned by other subsystems that
// are keyed by cage id, in cascade order.
func DependentCollections() []Collection {
	return []Collection{
		CollectionMice,
		CollectionLitters,
		CollectionFiles,
		CollectionNotes,
		CollectionIacucLinks,
		CollectionUserLinks,
		CollectionTasks,
		CollectionMaintenance,
		CollectionReminders,
	}
}

// IsDependent reports whether c is one of the dependent collections.
func (c Collection) IsDependent() bool {
	_, ok := dependentRefColumns[c]
	return ok
}

// RefColumn returns the reference column of a dependent collection, or "" for
// collections that are not dependent.
func (c Collection) RefColumn() string {
	return dependentRefColumns[c]
}

// Deletable reports whether c may appear in a cascade manifest.
func (c Collection) Deletable() bool {
	switch c {
	case CollectionCages, CollectionHolding, CollectionBreeding:
		return true
	default:
		return c.IsDependent()
	}
}
