package anomaly

import (
	"fmt"

	"github.com/mteodoro/riskstream/internal/event"
)

// Anomaly type tags carried on injected flags.
const (
	TypeUnusualCreditLimitHigh = "UNUSUAL_CREDIT_LIMIT_HIGH"
	TypeUnusualCreditLimitLow  = "UNUSUAL_CREDIT_LIMIT_LOW"
	TypeInvalidCreditLimit     = "INVALID_CREDIT_LIMIT"
	TypeSeverePaymentDelays    = "SEVERE_PAYMENT_DELAYS"
	TypeExcessiveOverpayment   = "EXCESSIVE_OVERPAYMENT"
	TypeConsistentNonPayment   = "CONSISTENT_NON_PAYMENT"
	TypeInvalidAge             = "INVALID_AGE"
	TypeDemographicMismatch    = "DEMOGRAPHIC_INCONSISTENCY"
	TypeDuplicateEvent         = "DUPLICATE_EVENT"
	TypeMissingCriticalFields  = "MISSING_CRITICAL_FIELDS"
)

func flag(ev *event.Event, typ string, sev event.Severity, desc string) {
	ev.AnomalyFlags = append(ev.AnomalyFlags, event.AnomalyFlag{
		Type:        typ,
		Severity:    sev,
		Description: desc,
	})
}

func (inj *Injector) unusualCreditLimit(ev *event.Event) *event.Event {
	c := ev.Clone()
	switch inj.rng.Intn(3) {
	case 0:
		c.Credit.CreditLimit = inj.randInt(5_000_000, 10_000_000)
		flag(c, TypeUnusualCreditLimitHigh, event.SeverityHigh,
			"Credit limit exceeds normal range by 10x")
	case 1:
		c.Credit.CreditLimit = inj.randInt(100, 1000)
		flag(c, TypeUnusualCreditLimitLow, event.SeverityMedium,
			"Credit limit below minimum threshold")
	default:
		c.Credit.CreditLimit = inj.randInt(-100_000, -1_000)
		flag(c, TypeInvalidCreditLimit, event.SeverityCritical,
			"Negative credit limit detected")
	}
	return c
}

func (inj *Injector) severePaymentDelays(ev *event.Event) *event.Event {
	c := ev.Clone()
	for _, month := range c.PaymentHistory.Each() {
		*month = inj.randInt(5, 9)
	}
	flag(c, TypeSeverePaymentDelays, event.SeverityHigh,
		"Consistent payment delays across all months")
	return c
}

func (inj *Injector) billingMismatch(ev *event.Event) *event.Event {
	c := ev.Clone()
	bills := c.BillingAmounts.Each()

	if inj.rng.Intn(2) == 0 {
		if c.PaymentAmounts != nil {
			payments := c.PaymentAmounts.Each()
			for i, bill := range bills {
				if *bill > 0 {
					*payments[i] = *bill * inj.randInt(5, 20)
				}
			}
		}
		flag(c, TypeExcessiveOverpayment, event.SeverityHigh,
			"Payment amounts significantly exceed billing amounts")
		return c
	}

	for i, bill := range bills {
		*bill = inj.randInt(50_000, 200_000)
		if c.PaymentAmounts != nil {
			*c.PaymentAmounts.Each()[i] = 0
		}
	}
	flag(c, TypeConsistentNonPayment, event.SeverityCritical,
		"High billing with zero payments across all months")
	return c
}

func (inj *Injector) demographicInconsistency(ev *event.Event) *event.Event {
	c := ev.Clone()

	if inj.rng.Intn(2) == 0 {
		var age int
		if inj.rng.Intn(2) == 0 {
			age = int(inj.randInt(5, 15))
		} else {
			age = int(inj.randInt(120, 200))
		}
		c.Customer.Demographic.Age = &age
		flag(c, TypeInvalidAge, event.SeverityMedium,
			fmt.Sprintf("Age %d is outside valid range", age))
		return c
	}

	age := int(inj.randInt(12, 16))
	c.Customer.Demographic.Age = &age
	c.Customer.Demographic.Education = event.EducationGraduateSchool
	flag(c, TypeDemographicMismatch, event.SeverityMedium,
		"Graduate school education inconsistent with age")
	return c
}

func (inj *Injector) duplicateEvent(ev *event.Event) *event.Event {
	c := ev.Clone()
	c.IsDuplicate = true
	flag(c, TypeDuplicateEvent, event.SeverityLow,
		"Potential duplicate event detected")
	return c
}

func (inj *Injector) missingFields(ev *event.Event) *event.Event {
	c := ev.Clone()
	c.PaymentAmounts = nil
	c.Customer.Demographic.Age = nil
	flag(c, TypeMissingCriticalFields, event.SeverityHigh,
		"One or more critical fields are missing")
	return c
}
