package model

import (
	"strings"
	"time"
)

type ExperimentStatus string

const (
	StatusDraft     ExperimentStatus = "draft"
	StatusRunning   ExperimentStatus = "running"
	StatusCompleted ExperimentStatus = "completed"
	StatusArchived  ExperimentStatus = "archived"
)

func (s ExperimentStatus) String() string { return string(s) }

func (s ExperimentStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusRunning, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

// ParseExperimentStatus normalizes input; empty => draft.
func ParseExperimentStatus(s string) (ExperimentStatus, bool) {
	st := ExperimentStatus(strings.ToLower(strings.TrimSpace(s)))
	if st == "" {
		return StatusDraft, true
	}
	if !st.Valid() {
		return StatusDraft, false
	}
	return st, true
}

// ReferenceType says what an experiment is measured against.
type ReferenceType string

const (
	ReferenceSupplier ReferenceType = "supplier" // align with another vendor
	ReferenceSelf     ReferenceType = "self"     // self-align at a lower bitrate
	ReferenceNew      ReferenceType = "new"      // brand new template
)

func (t ReferenceType) String() string { return string(t) }

func (t ReferenceType) Valid() bool {
	return t == ReferenceSupplier || t == ReferenceSelf || t == ReferenceNew
}

// ParseReferenceType normalizes input; empty => new.
func ParseReferenceType(s string) (ReferenceType, bool) {
	rt := ReferenceType(strings.ToLower(strings.TrimSpace(s)))
	if rt == "" {
		return ReferenceNew, true
	}
	if !rt.Valid() {
		return ReferenceNew, false
	}
	return rt, true
}

// Experiment is a row of the experiments table. Color is never empty once
// decoded: a blank cell falls back to PaletteColor(ID).
type Experiment struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	Status        ExperimentStatus `json:"status"`
	ReferenceType ReferenceType    `json:"reference_type"`
	Color         string           `json:"color"`
	CreatedAt     time.Time        `json:"created_at"`
	CreatedBy     int64            `json:"created_by"`
	UpdatedAt     *time.Time       `json:"updated_at"`
}

// Brief is the projection shown in matrix cells.
func (e Experiment) Brief() ExperimentBrief {
	return ExperimentBrief{ID: e.ID, Name: e.Name, Status: e.Status, Color: e.Color}
}

// ExperimentDetail is an experiment with the templates it is linked to, in
// link order.
type ExperimentDetail struct {
	Experiment
	TemplateIDs []int64 `json:"template_ids"`
}

type NewExperiment struct {
	Name          string
	TemplateIDs   []int64
	CreatedBy     int64
	ReferenceType ReferenceType    // empty => new
	Status        ExperimentStatus // empty => draft
}

type ExperimentPatch struct {
	Name          *string
	Status        *ExperimentStatus
	ReferenceType *ReferenceType
	Color         *string
}

// ExperimentFilter selects a page of experiments. Page is 1-based.
type ExperimentFilter struct {
	Page       int
	PageSize   int
	TemplateID *int64
	Status     *ExperimentStatus
}

type ExperimentBrief struct {
	ID     int64            `json:"id"`
	Name   string           `json:"name"`
	Status ExperimentStatus `json:"status"`
	Color  string           `json:"color"`
}
