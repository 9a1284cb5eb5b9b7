package database

import (
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/tasklane/tasklane/internal/models"
)

// SeedDevData populates the database with development test data.
// Idempotent: skips if data already exists.
func SeedDevData(db *gorm.DB) error {
	// Check if seed data already exists
	var existingUser models.User
	result := db.Where("email = ?", "dev@tasklane.local").First(&existingUser)
	if result.Error == nil {
		log.Println("Seed data already exists, skipping")
		return nil
	}

	user := models.User{
		Email:              "dev@tasklane.local",
		FirstName:          "Dev",
		LastName:           "User",
		Timezone:           "Europe/Lisbon",
		Active:             true,
		WorkHoursMonday:    8,
		WorkHoursTuesday:   8,
		WorkHoursWednesday: 8,
		WorkHoursThursday:  8,
		WorkHoursFriday:    6,
		WorkStartSunday:    "09:00",
		WorkStartMonday:    "09:00",
		WorkStartTuesday:   "09:00",
		WorkStartWednesday: "09:00",
		WorkStartThursday:  "09:00",
		WorkStartFriday:    "09:00",
		WorkStartSaturday:  "09:00",
	}

	if err := db.Create(&user).Error; err != nil {
		return err
	}

	work := models.Project{Name: "Website Relaunch"}
	if err := db.Create(&work).Error; err != nil {
		return err
	}
	hobby := models.Project{Name: "Woodworking", Hobby: true}
	if err := db.Create(&hobby).Error; err != nil {
		return err
	}

	monday := nextMonday(time.Now())
	friday := monday.AddDate(0, 0, 4)

	report := models.Task{ProjectID: work.ID, Name: "Write launch report", DueDate: &friday}
	review := models.Task{ProjectID: work.ID, Name: "Review landing page copy"}
	bench := models.Task{ProjectID: hobby.ID, Name: "Sand workbench top"}
	for _, task := range []*models.Task{&report, &review, &bench} {
		if err := db.Create(task).Error; err != nil {
			return err
		}
	}

	seedAllocations := []models.Allocation{
		{UserID: user.ID, TaskID: report.ID, Date: monday, Hours: 4},
		{UserID: user.ID, TaskID: review.ID, Date: monday, Hours: 2},
		{UserID: user.ID, TaskID: report.ID, Date: monday.AddDate(0, 0, 2), Hours: 3},
		{UserID: user.ID, TaskID: bench.ID, Date: monday, Hours: 1.5},
	}
	for i := range seedAllocations {
		if err := db.Create(&seedAllocations[i]).Error; err != nil {
			return err
		}
	}

	// Leave weekly summaries enabled by omission; store one explicit row so
	// the preferences path is exercised in dev.
	setting := models.NotificationSetting{
		UserID:     user.ID,
		SettingKey: models.SettingDailyWorkSummary,
		Enabled:    true,
	}
	if err := db.Create(&setting).Error; err != nil {
		return err
	}

	log.Println("Seeded dev data: 1 user, 2 projects, 3 tasks, 4 allocations")
	return nil
}

func nextMonday(t time.Time) time.Time {
	t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	for t.Weekday() != time.Monday {
		t = t.AddDate(0, 0, 1)
	}
	return t
}
