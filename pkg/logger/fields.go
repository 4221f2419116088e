package logger

import (
	"context"
	"strings"
)

// WithField returns a child of ctx whose log entries carry key. The parent
// context is left untouched.
func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return l.WithFields(ctx, map[string]any{key: value})
}

func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	child := l.entry(ctx).With().Fields(fields).Logger()
	return child.WithContext(ctx)
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.WithField(ctx, "request_id", requestID)
}

func (l *Logger) WithUserID(ctx context.Context, userID string) context.Context {
	return l.WithField(ctx, "user_id", userID)
}

func (l *Logger) WithVolunteerID(ctx context.Context, volunteerID string) context.Context {
	return l.WithField(ctx, "volunteer_id", volunteerID)
}

func (l *Logger) WithOrderID(ctx context.Context, orderID string) context.Context {
	return l.WithField(ctx, "order_id", orderID)
}

func (l *Logger) WithActorRole(ctx context.Context, role string) context.Context {
	return l.WithField(ctx, "actor_role", role)
}

func (l *Logger) WithOrderNumber(ctx context.Context, orderNumber string) context.Context {
	return l.WithField(ctx, "order_number", orderNumber)
}

// WithCustomerPhone attaches the phone masked down to its last four digits.
func (l *Logger) WithCustomerPhone(ctx context.Context, phone string) context.Context {
	return l.WithField(ctx, "customer_phone", MaskPhone(phone))
}

// MaskPhone keeps the last four digits of phone and stars the rest.
// Separators are dropped before counting.
func MaskPhone(phone string) string {
	var digits []byte
	for i := 0; i < len(phone); i++ {
		if c := phone[i]; c >= '0' && c <= '9' {
			digits = append(digits, c)
		}
	}
	keep := 4
	if len(digits) <= keep {
		keep = 0
	}
	return strings.Repeat("*", len(digits)-keep) + string(digits[len(digits)-keep:])
}
