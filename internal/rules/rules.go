// Package rules loads the operator-editable matching rules: bank row
// classification keywords, the payment type to GL code table and the email
// sender and boilerplate filters.
package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fjacquet/church-ledger/internal/logging"
	"fjacquet/church-ledger/internal/models"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up when no explicit rules file is configured.
const DefaultFileName = "rules.yaml"

// DefaultGLCode is used for payment types missing from the GL table.
const DefaultGLCode = "4900"

// TypeRule maps description keywords to a bank row type. Rules are evaluated
// in file order and the first rule with a matching keyword wins.
type TypeRule struct {
	Type     string   `yaml:"type"`
	Keywords []string `yaml:"keywords"`
}

// Rules is the content of a rules file.
type Rules struct {
	BankTypes      []TypeRule        `yaml:"bank_types"`
	GLCodes        map[string]string `yaml:"gl_codes"`
	DefaultGLCode  string            `yaml:"default_gl_code"`
	IgnoredSenders []string          `yaml:"ignored_senders"`
	Boilerplate    []string          `yaml:"boilerplate"`
}

// Default returns the built-in rules.
func Default() *Rules {
	return &Rules{
		BankTypes: []TypeRule{
			{Type: models.BankTypeZelle, Keywords: []string{"ZELLE"}},
			{Type: models.BankTypeVenmo, Keywords: []string{"VENMO"}},
			{Type: models.BankTypePayPal, Keywords: []string{"PAYPAL"}},
			{Type: models.BankTypeCashApp, Keywords: []string{"CASH APP", "CASHAPP", "SQUARE CASH"}},
			{Type: models.BankTypeCheck, Keywords: []string{"CHECK", "CHK"}},
			{Type: models.BankTypeDeposit, Keywords: []string{"DEPOSIT"}},
			{Type: models.BankTypeATM, Keywords: []string{"ATM"}},
		},
		GLCodes: map[string]string{
			string(models.PaymentMembershipDue): "4100",
			string(models.PaymentTithe):         "4010",
			string(models.PaymentOffering):      "4020",
			string(models.PaymentPledge):        "4030",
			string(models.PaymentDonation):      "4200",
			string(models.PaymentBuildingFund):  "4300",
			string(models.PaymentEvent):         "4400",
			string(models.PaymentOther):         DefaultGLCode,
		},
		DefaultGLCode: DefaultGLCode,
		IgnoredSenders: []string{
			"no-reply@accounts.google.com",
			"noreply@github.com",
		},
		Boilerplate: []string{
			"You received money with Zelle",
			"is registered with a Zelle",
			"Thank you for using Zelle",
			"View this payment",
		},
	}
}

// GLCode resolves the GL code of a payment type.
func (r *Rules) GLCode(pt models.PaymentType) string {
	if code, ok := r.GLCodes[string(pt)]; ok && code != "" {
		return code
	}
	if r.DefaultGLCode != "" {
		return r.DefaultGLCode
	}
	return DefaultGLCode
}

// Load reads the rules file at path and overlays it on the defaults. An empty
// path looks for DefaultFileName; a missing file yields the defaults.
func Load(path string, logger logging.Logger) (*Rules, error) {
	logger = logging.OrDefault(logger)
	r := Default()

	name := path
	if name == "" {
		name = DefaultFileName
	}
	resolved, err := FindFile(name)
	if err != nil {
		if path != "" {
			return nil, fmt.Errorf("rules file not found: %s", path)
		}
		logger.Debug("No rules file found, using built-in rules")
		return r, nil
	}

	data, err := os.ReadFile(resolved) // #nosec G304 -- operator-supplied config path
	if err != nil {
		return nil, fmt.Errorf("error reading rules file: %w", err)
	}

	var file Rules
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("error parsing rules file %s: %w", resolved, err)
	}
	if err := file.validate(); err != nil {
		return nil, fmt.Errorf("invalid rules file %s: %w", resolved, err)
	}

	r.merge(&file)
	logger.WithFields(
		logging.Field{Key: logging.FieldFile, Value: resolved},
		logging.Field{Key: logging.FieldCount, Value: len(r.BankTypes)},
	).Info("Loaded rules file")
	return r, nil
}

func (r *Rules) merge(o *Rules) {
	if len(o.BankTypes) > 0 {
		r.BankTypes = o.BankTypes
	}
	for k, v := range o.GLCodes {
		r.GLCodes[k] = v
	}
	if o.DefaultGLCode != "" {
		r.DefaultGLCode = o.DefaultGLCode
	}
	if len(o.IgnoredSenders) > 0 {
		r.IgnoredSenders = o.IgnoredSenders
	}
	if len(o.Boilerplate) > 0 {
		r.Boilerplate = o.Boilerplate
	}
}

func (r *Rules) validate() error {
	for i, tr := range r.BankTypes {
		if strings.TrimSpace(tr.Type) == "" {
			return fmt.Errorf("bank_types[%d]: type is required", i)
		}
		if len(tr.Keywords) == 0 {
			return fmt.Errorf("bank_types[%d] (%s): at least one keyword is required", i, tr.Type)
		}
	}
	for k := range r.GLCodes {
		if !models.PaymentType(k).Valid() {
			return fmt.Errorf("gl_codes: unknown payment type %q", k)
		}
	}
	return nil
}

// FindFile looks for filename as given, then under ./config and
// $HOME/.church-ledger.
func FindFile(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		if _, err := os.Stat(filename); err == nil {
			return filename, nil
		}
		return "", os.ErrNotExist
	}

	locations := []string{
		filename,
		filepath.Join("config", filename),
	}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".church-ledger", filename))
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location, nil
		}
	}
	return "", os.ErrNotExist
}
