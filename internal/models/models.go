package models

import "time"

// Dates travel as YYYY-MM-DD strings so that lexicographic comparison
// matches chronological order across the document store.
const DateLayout = "2006-01-02"

const (
	CustomerTypeAMC    = "AMC"
	CustomerTypeNonAMC = "NON_AMC"

	AMCStatusActive   = "Active"
	AMCStatusInactive = "Inactive"
)

const (
	TicketTypeTicket    = "TICKET"
	TicketTypeService   = "SERVICE"
	TicketTypeComplaint = "COMPLAINT"
	TicketTypeAMC       = "AMC"

	TicketStatusOpen      = "open"
	TicketStatusAssigned  = "assigned"
	TicketStatusCompleted = "completed"
	TicketStatusCancelled = "cancelled"
)

const (
	TechnicianActive   = "active"
	TechnicianInactive = "inactive"
)

// AMC is the contract record carried on an AMC customer. StartDate and
// EndDate are fixed at creation; reschedules and delayed services never
// move them. NextServiceDate is recalculated from LastServiceDate.
type AMC struct {
	StartDate         string  `json:"startDate"`
	EndDate           string  `json:"endDate"`
	IntervalMonths    int     `json:"intervalMonths"`
	TotalServices     int     `json:"totalServices"`
	ServicesCompleted int     `json:"servicesCompleted"`
	LastServiceDate   string  `json:"lastServiceDate,omitempty"`
	NextServiceDate   string  `json:"nextServiceDate,omitempty"`
	Amount            float64 `json:"amount"`
	Description       string  `json:"description,omitempty"`
	IsActive          bool    `json:"isActive"`
}

type Customer struct {
	ID           string `json:"id,omitempty"`
	FullName     string `json:"fullName"`
	Phone        string `json:"phone"`
	Address      string `json:"address,omitempty"`
	CustomerType string `json:"customerType"`
	AMC          *AMC   `json:"amc,omitempty"`

	AMCStatus          string `json:"amcStatus,omitempty"`
	AMCStatusReason    string `json:"amcStatusReason,omitempty"`
	AMCStatusUpdatedAt string `json:"amcStatusUpdatedAt,omitempty"`

	// Per-cycle reminder dedup markers. Reset belongs to the renewal
	// workflow, not to the automation engine.
	AIReminderSent   bool   `json:"aiReminderSent,omitempty"`
	LastReminderDate string `json:"lastReminderDate,omitempty"`

	Deleted   bool   `json:"deleted,omitempty"`
	DeletedAt string `json:"deletedAt,omitempty"`
	DeletedBy string `json:"deletedBy,omitempty"`
}

// Reschedule is one entry of a ticket's reschedule history.
type Reschedule struct {
	Date   string `json:"date"`
	Time   string `json:"time,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type Ticket struct {
	ID         string `json:"id,omitempty"`
	TicketCode string `json:"ticketCode"`
	Type       string `json:"type"`
	Status     string `json:"status"`

	CustomerID   string `json:"customerId,omitempty"`
	CustomerName string `json:"customerName,omitempty"`
	Description  string `json:"description,omitempty"`

	AssignedTo   string `json:"assignedTo,omitempty"`
	AssignedToID string `json:"assignedToId,omitempty"`
	AssignedAt   string `json:"assignedAt,omitempty"`

	CreatedAt            string       `json:"createdAt"`
	ScheduledDate        string       `json:"scheduledDate,omitempty"`
	ScheduledArrivalTime string       `json:"scheduledArrivalTime,omitempty"`
	ReassignedDate       string       `json:"reassignedDate,omitempty"`
	RescheduleHistory    []Reschedule `json:"rescheduleHistory,omitempty"`
	RescheduleCount      int          `json:"rescheduleCount,omitempty"`
	RescheduleReason     string       `json:"rescheduleReason,omitempty"`

	ServiceType  string `json:"serviceType,omitempty"`
	AMCGenerated bool   `json:"amcGenerated,omitempty"`

	TakePayment      bool    `json:"takePayment,omitempty"`
	PaymentAmount    float64 `json:"paymentAmount,omitempty"`
	PaymentCollected bool    `json:"paymentCollected,omitempty"`
	CompletionNotes  string  `json:"completionNotes,omitempty"`
	CompletedAt      string  `json:"completedAt,omitempty"`

	// Idempotency markers: once set, the corresponding automation task
	// never reprocesses this ticket.
	AIAutoAssigned    bool `json:"aiAutoAssigned,omitempty"`
	AIAutoRescheduled bool `json:"aiAutoRescheduled,omitempty"`
	AIAutoCompleted   bool `json:"aiAutoCompleted,omitempty"`

	Deleted   bool   `json:"deleted,omitempty"`
	DeletedAt string `json:"deletedAt,omitempty"`
	DeletedBy string `json:"deletedBy,omitempty"`
}

type Technician struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	Phone  string `json:"phone,omitempty"`
	Status string `json:"status"`
}

type Payment struct {
	ID         string  `json:"id,omitempty"`
	CustomerID string  `json:"customerId,omitempty"`
	TicketID   string  `json:"ticketId,omitempty"`
	Amount     float64 `json:"amount"`
	Date       string  `json:"date"`
	Status     string  `json:"status"`
	Method     string  `json:"method,omitempty"`
}

// ServiceVisit is one quarterly visit generated under an AMC (or an ad-hoc
// service). AMCOriginalDate records the month the visit belongs to and is
// immutable; only ScheduledDate moves on reschedule.
type ServiceVisit struct {
	ID               string `json:"id,omitempty"`
	CustomerID       string `json:"customerId"`
	ServiceType      string `json:"serviceType,omitempty"`
	Status           string `json:"status"`
	ScheduledDate    string `json:"scheduledDate,omitempty"`
	AMCGenerated     bool   `json:"amcGenerated,omitempty"`
	AMCServiceNumber int    `json:"amcServiceNumber,omitempty"`
	AMCOriginalDate  string `json:"amcOriginalDate,omitempty"`
	CompletedAt      string `json:"completedAt,omitempty"`
}

type AutomationLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

type BackupCollection struct {
	Count      int    `json:"count"`
	Data       any    `json:"data"`
	LastBackup string `json:"lastBackup"`
}

type BackupCollections struct {
	Customers   BackupCollection `json:"customers"`
	Tickets     BackupCollection `json:"tickets"`
	Payments    BackupCollection `json:"payments"`
	Technicians BackupCollection `json:"technicians"`
}

// BackupSnapshot is immutable once written and retained without bound.
type BackupSnapshot struct {
	Timestamp   string            `json:"timestamp"`
	Version     string            `json:"version"`
	TotalItems  int               `json:"totalItems"`
	Collections BackupCollections `json:"collections"`
}

type AuditEntry struct {
	EntityType string    `json:"entityType"`
	EntityID   string    `json:"entityId"`
	Before     any       `json:"before,omitempty"`
	After      any       `json:"after,omitempty"`
	Actor      string    `json:"actor"`
	Reason     string    `json:"reason,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
