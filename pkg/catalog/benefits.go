package catalog

// BenefitCard is one "why choose us" card.
type BenefitCard struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// BenefitItem is a "why choose us" entry as the partners API returns it.
type BenefitItem struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

// DefaultBenefitCards are shown when the API has no entries.
var DefaultBenefitCards = []BenefitCard{
	{
		Title:       "Высокий профессионализм",
		Description: "Наши специалисты — эксперты с многолетним опытом, регулярно повышающие квалификацию",
	},
	{
		Title:       "Гибкость сотрудничества",
		Description: "Мы предлагаем решения, адаптированные под особенности и потребности каждой компании",
	},
	{
		Title:       "Современное оборудование",
		Description: "Используем передовые технологии для обеспечения высокого качества наших услуг",
	},
	{
		Title:       "Надёжность и поддержка",
		Description: "Предоставляем круглосуточную поддержку и возможность онлайн-консультаций",
	},
}

// WhyChooseUs maps API entries to cards, falling back to
// DefaultBenefitCards when there are none.
func WhyChooseUs(items []BenefitItem) []BenefitCard {
	if len(items) == 0 {
		out := make([]BenefitCard, len(DefaultBenefitCards))
		copy(out, DefaultBenefitCards)
		return out
	}

	out := make([]BenefitCard, 0, len(items))
	for _, item := range items {
		out = append(out, BenefitCard{Title: item.Title, Description: item.Subtitle})
	}
	return out
}
