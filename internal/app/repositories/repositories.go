package repositories

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories holds all the repository instances
type Repositories struct {
	UserRepository        *UserRepository
	ApplicationRepository *ApplicationRepository
	StudentRepository     *StudentRepository
	PaymentRepository     *PaymentRepository
	LinkAuditRepository   *LinkAuditRepository
}

// NewRepositories initializes all repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		UserRepository:        NewUserRepository(db),
		ApplicationRepository: NewApplicationRepository(db),
		StudentRepository:     NewStudentRepository(db),
		PaymentRepository:     NewPaymentRepository(db),
		LinkAuditRepository:   NewLinkAuditRepository(db),
	}
}
