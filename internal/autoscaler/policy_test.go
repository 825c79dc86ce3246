package autoscaler

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/clusterpilot/clusterpilot/internal/metricstore"
)

func validPolicy() Policy {
	return Policy{
		MetricType:         metricstore.MetricCPU,
		TargetValue:        60,
		ScaleUpThreshold:   80,
		ScaleDownThreshold: 30,
		MinReplicas:        2,
		MaxReplicas:        10,
		ScaleUpCooldown:    time.Minute,
		ScaleDownCooldown:  5 * time.Minute,
		AggregationWindow:  time.Minute,
	}
}

func TestPolicyValidate(t *testing.T) {
	assert.NoError(t, validPolicy().Validate())
}

func TestPolicyValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Policy)
	}{
		{"missing metric type", func(p *Policy) { p.MetricType = "" }},
		{"zero target", func(p *Policy) { p.TargetValue = 0 }},
		{"negative target", func(p *Policy) { p.TargetValue = -5 }},
		{"negative threshold", func(p *Policy) { p.ScaleDownThreshold = -1 }},
		{"inverted thresholds", func(p *Policy) { p.ScaleDownThreshold = 90 }},
		{"equal thresholds", func(p *Policy) { p.ScaleDownThreshold = 80 }},
		{"negative min replicas", func(p *Policy) { p.MinReplicas = -1 }},
		{"min above max", func(p *Policy) { p.MinReplicas = 11 }},
		{"negative cooldown", func(p *Policy) { p.ScaleUpCooldown = -time.Second }},
		{"zero window", func(p *Policy) { p.AggregationWindow = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validPolicy()
			tc.mutate(&p)
			err := p.Validate()
			assert.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPolicy), "validation failures wrap ErrInvalidPolicy")
		})
	}
}

func TestPolicyClamp(t *testing.T) {
	p := validPolicy()
	assert.Equal(t, 2, p.clamp(0))
	assert.Equal(t, 5, p.clamp(5))
	assert.Equal(t, 10, p.clamp(50))
}
