package customers

import "time"

// Customer is the item stored in the customers table.
type Customer struct {
	ID        string    `dynamodbav:"id" json:"id"` // PK
	Name      string    `dynamodbav:"name" json:"name"`
	Email     string    `dynamodbav:"email" json:"email"`
	CreatedAt time.Time `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt time.Time `dynamodbav:"updated_at" json:"updated_at"`
}
