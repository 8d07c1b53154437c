package model

import "time"

// Customer owns apps; its name is unique across all customers.
type Customer struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Contact     *string   `json:"contact"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type NewCustomer struct {
	Name        string
	Contact     *string
	Description *string
}

type CustomerPatch struct {
	Name        *string
	Contact     *string
	Description *string
}

// App belongs to a customer; its name is unique within that customer.
type App struct {
	ID          int64     `json:"id"`
	CustomerID  int64     `json:"customer_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type NewApp struct {
	CustomerID  int64
	Name        string
	Description *string
}

type AppPatch struct {
	CustomerID  *int64
	Name        *string
	Description *string
}

// Template is a transcoding template (e.g. hd5, uhd) of an app; its name is
// unique within that app.
type Template struct {
	ID          int64     `json:"id"`
	AppID       int64     `json:"app_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type NewTemplate struct {
	AppID       int64
	Name        string
	Description *string
}

type TemplatePatch struct {
	AppID       *int64
	Name        *string
	Description *string
}
