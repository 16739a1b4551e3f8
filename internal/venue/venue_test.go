package venue

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/helixir/citegraph/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		paper domain.PaperRecord
		want  domain.VenueRecord
	}{
		{
			name: "no publication types",
			paper: domain.PaperRecord{
				Venue:   "arXiv",
				Journal: &domain.Journal{Name: "ArXiv", Volume: "abs/1"},
			},
			want: domain.VenueRecord{VenueType: domain.VenueTypeUnknown, Name: "arXiv"},
		},
		{
			name: "journal with structured metadata",
			paper: domain.PaperRecord{
				Venue:            "VLDB J.",
				PublicationTypes: []string{"JournalArticle"},
				Journal:          &domain.Journal{Name: "The VLDB Journal", Volume: "12", Pages: "1-20"},
			},
			want: domain.VenueRecord{VenueType: domain.VenueTypeJournal, Name: "The VLDB Journal", Volume: "12", Pages: "1-20"},
		},
		{
			name: "journal metadata without a name keeps the raw venue",
			paper: domain.PaperRecord{
				Venue:            "Inf. Syst.",
				PublicationTypes: []string{"JournalArticle"},
				Journal:          &domain.Journal{Volume: "7"},
			},
			want: domain.VenueRecord{VenueType: domain.VenueTypeJournal, Name: "Inf. Syst.", Volume: "7"},
		},
		{
			name: "journal without metadata",
			paper: domain.PaperRecord{
				Venue:            "Data Mining and Knowledge Discovery",
				PublicationTypes: []string{"JournalArticle"},
			},
			want: domain.VenueRecord{VenueType: domain.VenueTypeJournal, Name: "Data Mining and Knowledge Discovery"},
		},
		{
			name: "journal article tag wins over conference tag",
			paper: domain.PaperRecord{
				Venue:            "Information Systems",
				PublicationTypes: []string{"Conference", "JournalArticle"},
			},
			want: domain.VenueRecord{VenueType: domain.VenueTypeJournal, Name: "Information Systems"},
		},
		{
			name: "journal that reads like a conference",
			paper: domain.PaperRecord{
				Venue:            "2019 IEEE Conference on Big Data",
				PublicationTypes: []string{"JournalArticle"},
				Journal:          &domain.Journal{Name: "2019 IEEE Conference on Big Data", Pages: "5-9"},
			},
			want: domain.VenueRecord{VenueType: domain.VenueTypeConference, Name: "2019 IEEE Conference on Big Data"},
		},
		{
			name: "conference words are case insensitive",
			paper: domain.PaperRecord{
				Venue:            "PROCEEDINGS of the VLDB Endowment",
				PublicationTypes: []string{"JournalArticle"},
			},
			want: domain.VenueRecord{VenueType: domain.VenueTypeConference, Name: "PROCEEDINGS of the VLDB Endowment"},
		},
		{
			name: "conference ignores journal metadata",
			paper: domain.PaperRecord{
				Venue:            "SIGMOD",
				PublicationTypes: []string{"Conference"},
				Journal:          &domain.Journal{Name: "Other", Volume: "3", Pages: "1-2"},
			},
			want: domain.VenueRecord{VenueType: domain.VenueTypeConference, Name: "SIGMOD"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.paper))
		})
	}
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"Information Systems Frontiers", "Information Systems Frontiers"},
		{"2019 IEEE International Conference on Big Data (Big Data)", "IEEE International Conference on Big Data (Big Data)"},
		{"Proceedings of the 2015 ACM SIGMOD International Conference", "ACM SIGMOD International Conference"},
		{"2008 IEEE 24th International Conference on Data Engineering", "IEEE International Conference on Data Engineering"},
		{"Proceedings. 20th International Conference on Data Engineering", "International Conference on Data Engineering"},
		{"Third International Workshop on Process Mining", "International Workshop on Process Mining"},
		{"IEEE Workshop (Cat. No.99EX123)", "IEEE Workshop"},
		{`"Journal of Data Science, 2020."`, "Journal of Data Science"},
		{"Data Mining and Knowledge Discovery - Volume 12", "Data Mining and Knowledge Discovery"},
		{"VLDB Journal:the  international journal", "VLDB Journal: the international journal"},
		{"Data-Intensive Computing", "Data Intensive Computing"},
		{"[2019] Semantic Web", "Semantic Web"},
		{"/Decision Support Systems", "Decision Support Systems"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanName(tt.in))
		})
	}
}

func TestSet(t *testing.T) {
	s := NewSet()

	assert.True(t, s.Add(domain.VenueRecord{VenueType: domain.VenueTypeConference, Name: "2019 IEEE Conference on Big Data"}))
	assert.False(t, s.Add(domain.VenueRecord{VenueType: domain.VenueTypeConference, Name: "2020 IEEE Conference on Big Data"}))
	assert.True(t, s.Add(domain.VenueRecord{VenueType: domain.VenueTypeJournal, Name: "IEEE Conference on Big Data"}))
	assert.True(t, s.Add(domain.VenueRecord{VenueType: domain.VenueTypeJournal, Name: "The VLDB Journal", Volume: "12"}))
	assert.True(t, s.Add(domain.VenueRecord{VenueType: domain.VenueTypeJournal, Name: "The VLDB Journal", Volume: "13"}))
	assert.False(t, s.Add(domain.VenueRecord{VenueType: domain.VenueTypeJournal, Name: " The VLDB Journal ", Volume: " 13 "}))
	assert.False(t, s.Add(domain.VenueRecord{VenueType: domain.VenueTypeUnknown, Name: ""}))
	assert.False(t, s.Add(domain.VenueRecord{VenueType: domain.VenueTypeUnknown, Name: "2019"}))

	assert.Equal(t, 4, s.Len())
	assert.Equal(t, []domain.VenueRecord{
		{VenueType: domain.VenueTypeConference, Name: "IEEE Conference on Big Data"},
		{VenueType: domain.VenueTypeJournal, Name: "IEEE Conference on Big Data"},
		{VenueType: domain.VenueTypeJournal, Name: "The VLDB Journal", Volume: "12"},
		{VenueType: domain.VenueTypeJournal, Name: "The VLDB Journal", Volume: "13"},
	}, s.Venues())
}
