package catalog

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWhyChooseUs_Defaults(t *testing.T) {
	got := WhyChooseUs(nil)
	if diff := cmp.Diff(DefaultBenefitCards, got); diff != "" {
		t.Errorf("WhyChooseUs(nil) mismatch (-want +got):\n%s", diff)
	}

	// Callers must not be able to mutate the defaults
	got[0].Title = "changed"
	if DefaultBenefitCards[0].Title == "changed" {
		t.Error("WhyChooseUs returned the shared default slice")
	}
}

func TestWhyChooseUs_FromAPI(t *testing.T) {
	items := []BenefitItem{
		{Title: "Лаборатория", Subtitle: "Собственная лаборатория"},
		{Title: "Онлайн", Subtitle: "Результаты в личном кабинете"},
	}

	want := []BenefitCard{
		{Title: "Лаборатория", Description: "Собственная лаборатория"},
		{Title: "Онлайн", Description: "Результаты в личном кабинете"},
	}
	if diff := cmp.Diff(want, WhyChooseUs(items)); diff != "" {
		t.Errorf("WhyChooseUs mismatch (-want +got):\n%s", diff)
	}
}
