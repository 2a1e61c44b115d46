package services_test

import (
	"testing"
	"time"

	"studentrecords/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBirthdate(t *testing.T) {
	want := time.Date(2001, 5, 17, 0, 0, 0, 0, time.UTC)

	got, err := services.ParseBirthdate("2001-05-17")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = services.ParseBirthdate("2001-05-17T22:30:00-03:00")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	for _, bad := range []string{"", "17/05/2001", "2001-02-30", "yesterday"} {
		_, err := services.ParseBirthdate(bad)
		assert.Error(t, err, bad)
	}
}
