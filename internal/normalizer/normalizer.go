package normalizer

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"amokanban/pkg/model"
)

type Normalizer struct {
	zones *ZoneMapper
	vocab Vocabulary
	loc   *time.Location
}

type Option func(*Normalizer)

func WithVocabulary(v Vocabulary) Option {
	return func(n *Normalizer) {
		n.vocab = v
	}
}

// WithLocation sets the zone epoch timestamps are converted in.
func WithLocation(loc *time.Location) Option {
	return func(n *Normalizer) {
		if loc != nil {
			n.loc = loc
		}
	}
}

func New(zones *ZoneMapper, opts ...Option) *Normalizer {
	n := &Normalizer{
		zones: zones,
		vocab: DefaultVocabulary(),
		loc:   time.UTC,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Normalizer) Vocabulary() Vocabulary {
	return n.vocab
}

func (n *Normalizer) Location() *time.Location {
	return n.loc
}

func (n *Normalizer) Zones() *ZoneMapper {
	return n.zones
}

// Normalize builds the booking for lead. branch selects the zone table and is
// the booking's branch unless the lead overrides it.
func (n *Normalizer) Normalize(lead model.RawLead, branch string) model.Booking {
	fields := lead.CustomFields
	v := n.vocab

	name := Lookup(fields, v.BookingName)
	if name == "" {
		name = lead.Name
	}
	if name == "" {
		name = v.NamelessLabel
	}

	phone := Lookup(fields, v.Phone)
	if phone == "" {
		phone = lead.ContactPhone()
	}

	bookingBranch := Lookup(fields, v.Branch)
	if bookingBranch == "" {
		bookingBranch = branch
	}

	zone := Lookup(fields, v.Zone)
	if zone == "" {
		zone = v.DefaultZone
	}

	dt := ParseDateTime(LookupFirst(fields, v.DateTimeFields...), n.loc)

	return model.Booking{
		ID:          strconv.FormatInt(lead.ID, 10),
		Name:        name,
		Time:        dt.Time,
		BookingDate: dt.Date,
		Guests:      parseGuests(Lookup(fields, v.Guests)),
		Phone:       phone,
		Comment:     Lookup(fields, v.Comment),
		Branch:      bookingBranch,
		Zone:        zone,
		TableID:     n.zones.TableID(branch, zone),
		HasVR:       n.isYes(Lookup(fields, v.VR)),
		HasShisha:   n.isYes(Lookup(fields, v.Shisha)),
		LeadID:      lead.ID,
		Status:      lead.StatusID,
	}
}

func (n *Normalizer) NormalizeAll(leads []model.RawLead, branch string) []model.Booking {
	out := make([]model.Booking, len(leads))
	for i, lead := range leads {
		out[i] = n.Normalize(lead, branch)
	}
	return out
}

// NormalizeParallel normalizes leads on up to workers goroutines. Output order
// matches input order.
func (n *Normalizer) NormalizeParallel(leads []model.RawLead, branch string, workers int) []model.Booking {
	if workers < 1 {
		workers = 1
	}
	if workers > len(leads) {
		workers = len(leads)
	}

	out := make([]model.Booking, len(leads))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = n.Normalize(leads[i], branch)
			}
		}()
	}

	for i := range leads {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return out
}

func (n *Normalizer) isYes(value string) bool {
	return strings.TrimSpace(value) == n.vocab.Yes
}

// parseGuests reads a leading integer the way "4 гостя" -> 4 is expected to
// work. Missing, non-numeric or non-positive counts become 1.
func parseGuests(raw string) int {
	s := strings.TrimSpace(raw)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 1
	}
	guests, err := strconv.Atoi(s[:end])
	if err != nil || guests < 1 {
		return 1
	}
	return guests
}
