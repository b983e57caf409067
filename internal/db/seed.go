package db

import (
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedPassword is the plain password of every seeded account.
const SeedPassword = "password"

// Reset deletes all rows, children first. Compatible with MySQL and SQLite.
func Reset(db *gorm.DB) error {
	for _, table := range []string{"messages", "matches", "dislikes", "likes", "profiles", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	switch db.Dialector.Name() {
	case "mysql":
		db.Exec("ALTER TABLE messages AUTO_INCREMENT = 1")
		db.Exec("ALTER TABLE users AUTO_INCREMENT = 1")
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence WHERE name IN ('messages', 'users')")
	}
	return nil
}

// CreateUserWithProfile inserts a user and its 1:1 profile in one transaction.
func CreateUserWithProfile(db *gorm.DB, user *User, photos []string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		profile := Profile{UserID: user.ID, Bio: user.Bio, Photos: photos}
		if err := tx.Create(&profile).Error; err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		return nil
	})
}

// SeedUsers resets the database and creates n demo users with profiles.
// Odd users are male, even users female; all share SeedPassword.
func SeedUsers(db *gorm.DB, n int) ([]User, error) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	if err := Reset(db); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	locations := []string{"London", "Manchester", "Leeds", "Bristol"}
	users := make([]User, 0, n)
	for i := 1; i <= n; i++ {
		gender, preference := "male", "women"
		if i%2 == 0 {
			gender, preference = "female", "men"
		}
		lastLogin := time.Now().Add(-time.Duration(r.Intn(500)) * time.Hour).UTC()

		user := User{
			Name:         fmt.Sprintf("User %d", i),
			Email:        fmt.Sprintf("user%d@example.com", i),
			PasswordHash: string(hash),
			Gender:       gender,
			Preference:   preference,
			Location:     locations[r.Intn(len(locations))],
			DOB:          time.Date(1985+r.Intn(15), time.Month(1+r.Intn(12)), 1+r.Intn(28), 0, 0, 0, 0, time.UTC),
			Active:       true,
			LastLoginAt:  &lastLogin,
		}
		photos := []string{fmt.Sprintf("https://cdn.example.com/u%d/1.jpg", i)}
		if err := CreateUserWithProfile(db, &user, photos); err != nil {
			return nil, fmt.Errorf("failed to seed user: %w", err)
		}
		users = append(users, user)
	}
	return users, nil
}

// SeedFixture creates three users with profiles and no likes, for tests.
// IDs are 1 (alice), 2 (bob) and 3 (carol).
func SeedFixture(db *gorm.DB) ([]User, error) {
	if err := Reset(db); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	users := []User{
		{ID: 1, Name: "alice", Email: "alice@test.com", PasswordHash: string(hash), Gender: "female", Preference: "men"},
		{ID: 2, Name: "bob", Email: "bob@test.com", PasswordHash: string(hash), Gender: "male", Preference: "women"},
		{ID: 3, Name: "carol", Email: "carol@test.com", PasswordHash: string(hash), Gender: "female", Preference: "everyone"},
	}
	for i := range users {
		photos := []string{fmt.Sprintf("%s.jpg", users[i].Name)}
		if err := CreateUserWithProfile(db, &users[i], photos); err != nil {
			return nil, err
		}
	}
	return users, nil
}
