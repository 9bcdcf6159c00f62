package class

import (
	"time"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/book"
)

type Class struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	TeacherID   int       `json:"teacher_id"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// AssignedBook is a catalog book assigned to a class as required reading.
type AssignedBook struct {
	Book       book.Book `json:"book"`
	AssignedAt time.Time `json:"assigned_at"` // UTC
}

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	TeacherID   int    `json:"teacher_id" validate:"required"`
}

func (nc *NewClass) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	return core.Validate.Struct(nc)
}

// UpdateClass defines what information may be provided to modify an existing Class.
// Empty fields keep their current values.
type UpdateClass struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (uc *UpdateClass) Validate(orig Class) error {
	if name := core.CleanString(uc.Name); name != "" {
		uc.Name = name
	} else {
		uc.Name = orig.Name
	}
	if desc := core.CleanString(uc.Description); desc != "" {
		uc.Description = desc
	} else {
		uc.Description = orig.Description
	}
	return core.Validate.Struct(uc)
}
