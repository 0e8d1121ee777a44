package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/loyalty-normalizer/internal/config"
	"github.com/ginjaninja78/loyalty-normalizer/internal/converter"
	"github.com/ginjaninja78/loyalty-normalizer/internal/types"
)

// mappingFlags collects column positions given on the command line. They
// override the profile and main config mappings slot by slot.
type mappingFlags struct {
	mapping types.ColumnMapping
}

func (f *mappingFlags) bindTransaction(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntVar((*int)(&f.mapping.Mobile), "mobile-col", 0, "Column number (1-based) of the mobile number")
	fs.IntVar((*int)(&f.mapping.BillNumber), "bill-number-col", 0, "Column number of the bill number")
	fs.IntVar((*int)(&f.mapping.BillAmount), "bill-amount-col", 0, "Column number of the bill amount")
	fs.IntVar((*int)(&f.mapping.OrderTime), "order-time-col", 0, "Column number of the order date/time")
	fs.IntVar((*int)(&f.mapping.PointsEarned), "points-earned-col", 0, "Column number of the points earned")
	fs.IntVar((*int)(&f.mapping.PointsRedeemed), "points-redeemed-col", 0, "Column number of the points redeemed")
}

func (f *mappingFlags) bindContact(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntVar((*int)(&f.mapping.Phone), "phone-col", 0, "Column number of the phone number (inferred from the header when unset)")
	fs.IntVar((*int)(&f.mapping.Name), "name-col", 0, "Column number of the name")
	fs.IntVar((*int)(&f.mapping.Email), "email-col", 0, "Column number of the email")
	fs.IntVar((*int)(&f.mapping.Birthday), "birthday-col", 0, "Column number of the birthday")
	fs.IntVar((*int)(&f.mapping.Anniversary), "anniversary-col", 0, "Column number of the anniversary")
	fs.IntVar((*int)(&f.mapping.Gender), "gender-col", 0, "Column number of the gender")
	fs.IntVar((*int)(&f.mapping.Points), "points-col", 0, "Column number of the points balance")
	fs.IntVar((*int)(&f.mapping.Tags), "tags-col", 0, "Column number of the tags")
}

// optionsFor builds the converter options for one input file. Precedence,
// lowest first: main config, matching profile, command line.
func optionsFor(path string, cfg *config.MainConfig, profiles []*config.Profile, flags types.ColumnMapping) (converter.Options, string) {
	opts := converter.Options{
		Mapping:  cfg.ColumnMapping,
		Settings: cfg.CSVSettings,
	}

	profileName := ""
	if p := config.MatchProfile(path, profiles); p != nil {
		profileName = p.Name
		opts.Mode = p.Mode
		opts.Mapping = opts.Mapping.Merge(p.ColumnMapping)
		opts.Settings = p.CSVSettings
	}

	opts.Mapping = opts.Mapping.Merge(flags)
	return opts, profileName
}
