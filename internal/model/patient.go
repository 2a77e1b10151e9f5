package model

import "fmt"

type Patient struct {
	FirstName string `db:"first_name" json:"first_name" validate:"notblank"`
	Surname   string `db:"surname" json:"surname" validate:"notblank"`
	Address   string `db:"address" json:"address"`
	Phone     string `db:"phone" json:"phone"`
}

// PatientKey is the identity of a patient.
type PatientKey struct {
	FirstName string `json:"first_name"`
	Surname   string `json:"surname"`
}

func NewPatient(firstName, surname, address, phone string) *Patient {
	return &Patient{FirstName: firstName, Surname: surname, Address: address, Phone: phone}
}

func (p *Patient) Key() PatientKey {
	return PatientKey{FirstName: p.FirstName, Surname: p.Surname}
}

func (p *Patient) String() string {
	return fmt.Sprintf("%s %s (%s, %s)", p.FirstName, p.Surname, p.Address, p.Phone)
}

func (k PatientKey) String() string {
	return k.FirstName + " " + k.Surname
}
