package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserFullName(t *testing.T) {
	u := &User{FirstName: "wANJIRU", LastName: "kamau"}
	assert.Equal(t, "Wanjiru Kamau", u.FullName())
	assert.Equal(t, "Otieno", (&User{FirstName: "otieno"}).FullName())
}

func TestIsNew(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	u := &User{BaseModel: BaseModel{CreatedAt: now.Add(-6 * 24 * time.Hour)}}
	assert.True(t, u.IsNew(now))
	u.CreatedAt = now.Add(-8 * 24 * time.Hour)
	assert.False(t, u.IsNew(now))

	a := &Advertisement{BaseModel: BaseModel{CreatedAt: now}}
	assert.True(t, a.IsNew(now))
}

func TestSubscriptionCurrent(t *testing.T) {
	today := time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)
	s := &Subscription{Active: true, EndDate: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)}
	assert.True(t, s.Current(today))

	s.EndDate = time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC)
	assert.False(t, s.Current(today))

	s.EndDate = time.Date(2024, 7, 9, 0, 0, 0, 0, time.UTC)
	s.Active = false
	assert.False(t, s.Current(today))
}

func TestClassifications(t *testing.T) {
	assert.True(t, ValidClassification("FP"))
	assert.False(t, ValidClassification("XX"))
	assert.Equal(t, "Service Listing", ClassificationLabel(ClassificationService))
}
