package db

import (
	"time"

	"github.com/aethersegment/backend/internal/models"
)

// Dataset is a complete warehouse snapshot, used by the in-memory
// warehouse and for seeding Postgres.
type Dataset struct {
	Customers    []Customer
	Carts        []Cart
	Transactions []Transaction
	Events       []Event
}

// Customer joins the customers and customer_scores rows. Record's cart
// fields are unused.
type Customer struct {
	Record            models.CustomerRecord
	AcquisitionSource string
	CreatedAt         time.Time
}

type Cart struct {
	ID         string
	CustomerID string
	Value      float64
	Items      int
	Status     string
	Timestamp  time.Time
}

type Transaction struct {
	ID          string
	CustomerID  string
	OrderValue  float64
	Category    string
	ProductName string
	Timestamp   time.Time
}

type Event struct {
	ID          string
	CustomerID  string
	Type        string
	Category    string
	ProductName string
	Timestamp   time.Time
}

const (
	CartAbandoned = "abandoned"
	CartRecovered = "recovered"
)
