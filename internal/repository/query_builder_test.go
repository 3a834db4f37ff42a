package repository

import (
	"testing"

	"github.com/doug-martin/goqu/v9"
	"github.com/stretchr/testify/assert"
)

func TestQueryBuilderHasConditions(t *testing.T) {
	builder := NewQueryBuilder()
	assert.False(t, builder.HasConditions())

	builder.AddCondition("status", 1)
	assert.True(t, builder.HasConditions())
}

func TestBuildConditionsAppliesAliases(t *testing.T) {
	builder := NewQueryBuilder()
	builder.AddCondition("status", 1)
	builder.AddCondition("order_number", 1234567)

	conditions := builder.BuildConditions(map[string]string{
		"status": "d.status",
	})

	assert.Equal(t, goqu.Ex{
		"d.status":     1,
		"order_number": 1234567,
	}, conditions)
}

func TestBuildConditionsKeepsLastValuePerKey(t *testing.T) {
	builder := NewQueryBuilder()
	builder.AddCondition("status", 1)
	builder.AddCondition("status", 2)

	conditions := builder.BuildConditions(nil)

	assert.Equal(t, goqu.Ex{"status": 2}, conditions)
}
