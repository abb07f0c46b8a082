package normalizer

// Vocabulary names the custom fields and literals used by a CRM account.
type Vocabulary struct {
	BookingName string
	Guests      string
	Phone       string
	Comment     string
	Branch      string
	Zone        string
	VR          string
	Shisha      string

	// DateTimeFields are tried in order; the first non-empty value wins.
	DateTimeFields []string

	Yes           string
	DefaultZone   string
	NamelessLabel string
}

func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		BookingName: "Имя Брони",
		Guests:      "Кол-во гостей",
		Phone:       "Телефон",
		Comment:     "Коммент к брони",
		Branch:      "Филиал",
		Zone:        "Зона",
		VR:          "VR",
		Shisha:      "Кальян",
		DateTimeFields: []string{
			"Дата и время брони",
			"Дата брони",
			"Время брони",
			"Дата",
			"Время",
		},
		Yes:           "Да",
		DefaultZone:   "Зона 1",
		NamelessLabel: "Без имени",
	}
}

// VocabularyByName returns the vocabulary for a language code, "ru" or "en".
// An empty name selects the default.
func VocabularyByName(name string) (Vocabulary, bool) {
	switch name {
	case "", "ru":
		return DefaultVocabulary(), true
	case "en":
		return EnglishVocabulary(), true
	default:
		return Vocabulary{}, false
	}
}

func EnglishVocabulary() Vocabulary {
	return Vocabulary{
		BookingName: "Booking name",
		Guests:      "Guests",
		Phone:       "Phone",
		Comment:     "Booking comment",
		Branch:      "Branch",
		Zone:        "Zone",
		VR:          "VR",
		Shisha:      "Shisha",
		DateTimeFields: []string{
			"Booking date and time",
			"Booking date",
			"Booking time",
			"Date",
			"Time",
		},
		Yes:           "Yes",
		DefaultZone:   "Zone 1",
		NamelessLabel: "Unnamed",
	}
}
