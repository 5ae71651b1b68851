// Package student models the people who sign up for events.
//
// A Student is one of four variants. Seniors, Juniors and Sophomores are club
// members distinguished by class year relative to the current senior year;
// Prospectives are non-members and are the only variant that carries an
// RSVP capability flag.
package student

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned by directories that have no record for a netid.
var ErrNotFound = errors.New("student not found")

// Variant tags the concrete kind of a Student.
type Variant string

const (
	VariantSenior      Variant = "senior"
	VariantJunior      Variant = "junior"
	VariantSophomore   Variant = "sophomore"
	VariantProspective Variant = "prospective"
)

// Label is the plural display form used in signup messages ("Seniors").
func (v Variant) Label() string {
	switch v {
	case VariantSenior:
		return "Seniors"
	case VariantJunior:
		return "Juniors"
	case VariantSophomore:
		return "Sophomores"
	case VariantProspective:
		return "Prospectives"
	}
	return "Students"
}

// Person is the identity shared by every variant.
type Person struct {
	NetID     string
	FirstName string
	LastName  string
}

// FullName joins first and last name.
func (p Person) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Ident returns the person itself; it is promoted into every variant.
func (p Person) Ident() Person {
	return p
}

// Student is the closed set {Senior, Junior, Sophomore, Prospective}.
type Student interface {
	Ident() Person
	Variant() Variant
	isStudent()
}

// Member is a club member with a graduating class year.
type Member struct {
	Person
	ClassYear int
}

type Senior struct{ Member }

type Junior struct{ Member }

type Sophomore struct{ Member }

// Prospective is a non-member. AllowRSVP gates whether they may sign up at all.
type Prospective struct {
	Person
	AllowRSVP bool
}

func (Senior) Variant() Variant      { return VariantSenior }
func (Junior) Variant() Variant      { return VariantJunior }
func (Sophomore) Variant() Variant   { return VariantSophomore }
func (Prospective) Variant() Variant { return VariantProspective }

func (Senior) isStudent()      {}
func (Junior) isStudent()      {}
func (Sophomore) isStudent()   {}
func (Prospective) isStudent() {}

// Record is the persisted identity tuple handed over by the identity resolver.
type Record struct {
	NetID       string
	FirstName   string
	LastName    string
	ClassYear   int
	Prospective bool
	AllowRSVP   bool
}

// rolloverOffset moves the class-year rollover to June 3rd.
const rolloverOffset = 153 * 24 * time.Hour

// SeniorYear returns the graduating year of the current senior class.
func SeniorYear(now time.Time) int {
	return now.Add(-rolloverOffset).Year() + 1
}

// Resolve maps a record onto its variant for the given senior year.
func Resolve(rec Record, seniorYear int) Student {
	p := Person{NetID: rec.NetID, FirstName: rec.FirstName, LastName: rec.LastName}
	if rec.Prospective {
		return Prospective{Person: p, AllowRSVP: rec.AllowRSVP}
	}

	m := Member{Person: p, ClassYear: rec.ClassYear}
	switch {
	case rec.ClassYear <= seniorYear:
		return Senior{m}
	case rec.ClassYear == seniorYear+1:
		return Junior{m}
	default:
		return Sophomore{m}
	}
}

// CanRSVP reports the RSVP capability; only Prospectives can be denied.
func CanRSVP(s Student) bool {
	if p, ok := s.(Prospective); ok {
		return p.AllowRSVP
	}
	return true
}
