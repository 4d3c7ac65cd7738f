package db_models

const (
	RoleRequester = "requester"
	RoleProvider  = "provider"
	RoleAdmin     = "admin"
)

type Account struct {
	BaseModel
	DisplayName  string
	Email        string `gorm:"unique"`
	PasswordHash string
	Role         string `gorm:"default:requester"`

	Plans    []JourneyPlan    `gorm:"foreignKey:RequesterID"`
	Requests []ServiceRequest `gorm:"foreignKey:RequesterID"`
}
