package models

// TeamModel is a club or school team
type TeamModel struct {
	BaseModel
	Code            string `gorm:"type:varchar(32);index"`
	Type            string `gorm:"type:varchar(32)"`
	NameShort       string `gorm:"type:varchar(100)"`
	NameLong        string `gorm:"type:varchar(255)"`
	CurrentSeason   string `gorm:"type:varchar(64)"`
	LocationName    string `gorm:"type:varchar(255)"`
	LocationAddress string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (TeamModel) TableName() string { return "teams" }

// SeasonModel is one season of a team
type SeasonModel struct {
	BaseModel
	Team       string `gorm:"type:varchar(64);index"`
	NameShort  string `gorm:"type:varchar(100)"`
	NameLong   string `gorm:"type:varchar(255)"`
	StartDate  string `gorm:"type:varchar(10)"`
	EndDate    string `gorm:"type:varchar(10);index"`
	IsComplete bool
}

// TableName returns the table name for GORM
func (SeasonModel) TableName() string { return "seasons" }

// MeetModel is a competition within a season
type MeetModel struct {
	BaseModel
	NameShort       string `gorm:"type:varchar(100)"`
	NameLong        string `gorm:"type:varchar(255)"`
	Date            string `gorm:"type:varchar(10);index"`
	LocationName    string `gorm:"type:varchar(255)"`
	LocationAddress string `gorm:"type:varchar(500)"`
	Team            string `gorm:"type:varchar(64);index"`
	Season          string `gorm:"type:varchar(64);index"`
	EventOrder      StringList
	Official        bool
	Benchmarks      bool
	IsComplete      bool
}

// TableName returns the table name for GORM
func (MeetModel) TableName() string { return "meets" }

// AthleteModel is a person's membership of a team for one season
type AthleteModel struct {
	BaseModel
	Person        string `gorm:"type:varchar(64);index"`
	Season        string `gorm:"type:varchar(64);index"`
	Team          string `gorm:"type:varchar(64);index"`
	Grade         *int64
	GroupName     string `gorm:"type:varchar(64)"`
	Subgroup      string `gorm:"type:varchar(64)"`
	Lane          *int64
	HasDisability bool
}

// TableName returns the table name for GORM
func (AthleteModel) TableName() string { return "athletes" }

// PersonModel is an individual who may swim, coach or be a contact
type PersonModel struct {
	BaseModel
	FirstName     string `gorm:"type:varchar(100)"`
	PreferredName string `gorm:"type:varchar(100)"`
	LastName      string `gorm:"type:varchar(100);index"`
	Birthday      string `gorm:"type:varchar(10)"`
	Gender        string `gorm:"type:varchar(1)"`
	Phone         string `gorm:"type:varchar(50)"`
	Email         string `gorm:"type:varchar(255)"`
	Emails        StringList
	IsArchived    bool
}

// TableName returns the table name for GORM
func (PersonModel) TableName() string { return "people" }

// EventModel is a race definition such as 50 yard freestyle
type EventModel struct {
	BaseModel
	Code      string `gorm:"type:varchar(32);index"`
	NameShort string `gorm:"type:varchar(100)"`
	NameLong  string `gorm:"type:varchar(255)"`
	Course    string `gorm:"type:varchar(8)"`
	Distance  int64
	Stroke    string `gorm:"type:varchar(32)"`
	HS        bool   `gorm:"column:hs"`
	MS        bool   `gorm:"column:ms"`
	U14       bool   `gorm:"column:u14"`
	O15       bool   `gorm:"column:o15"`
}

// TableName returns the table name for GORM
func (EventModel) TableName() string { return "events" }

// ResultModel is an individual or relay swim. Result is in hundredths.
type ResultModel struct {
	BaseModel
	Meet     string `gorm:"type:varchar(64);index"`
	Event    string `gorm:"type:varchar(64);index"`
	Athletes StringList
	Team     string `gorm:"type:varchar(64);index"`
	Season   string `gorm:"type:varchar(64);index"`
	Age      *int64
	Result   *int64 `gorm:"index"`
	DQ       bool   `gorm:"column:dq"`
	Relay    bool
}

// TableName returns the table name for GORM
func (ResultModel) TableName() string { return "results" }

// All returns one zero value of every model, in migration order
func All() []any {
	return []any{
		&TeamModel{},
		&SeasonModel{},
		&MeetModel{},
		&PersonModel{},
		&AthleteModel{},
		&EventModel{},
		&ResultModel{},
	}
}
