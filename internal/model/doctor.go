package model

type Doctor struct {
	Base
	Name           string `db:"name" json:"name"`
	Email          string `db:"email" json:"email"`
	Specialization string `db:"specialization" json:"specialization,omitempty"`
}
