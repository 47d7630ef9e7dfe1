package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/carcrm-cli/internal/core/domain"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage form and excel templates",
	Long: `Manage the printable form templates and spreadsheet export
templates shared through Drive.

Form templates carry coordinate mappings that place customer fields
onto a printable page. Excel templates carry cell mappings instead.

Examples:
  carcrm templates forms list
  carcrm templates forms add --name "Sales Proposal"
  carcrm templates forms map <template-id> --field name --page 1 --x 120 --y 340
  carcrm templates excel add --name "VSA Export"
  carcrm templates excel map <template-id> --field nric --sheet VSA --cell B12`,
}

var templatesFormsCmd = &cobra.Command{
	Use:   "forms",
	Short: "Manage form templates",
	RunE:  runFormsList,
}

var formsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List form templates",
	RunE:  runFormsList,
}

var formsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a form template",
	RunE:  runFormsAdd,
}

var formsRemoveCmd = &cobra.Command{
	Use:   "remove [template-id]",
	Short: "Remove a form template",
	Args:  cobra.ExactArgs(1),
	RunE:  runFormsRemove,
}

var formsMapCmd = &cobra.Command{
	Use:   "map [template-id]",
	Short: "Add a field mapping to a form template",
	Args:  cobra.ExactArgs(1),
	RunE:  runFormsMap,
}

var formsUnmapCmd = &cobra.Command{
	Use:   "unmap [template-id] [mapping-id]",
	Short: "Remove a field mapping from a form template",
	Args:  cobra.ExactArgs(2),
	RunE:  runFormsUnmap,
}

var templatesExcelCmd = &cobra.Command{
	Use:   "excel",
	Short: "Manage excel templates",
	RunE:  runExcelList,
}

var excelListCmd = &cobra.Command{
	Use:   "list",
	Short: "List excel templates",
	RunE:  runExcelList,
}

var excelAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an excel template",
	RunE:  runExcelAdd,
}

var excelRemoveCmd = &cobra.Command{
	Use:   "remove [template-id]",
	Short: "Remove an excel template",
	Args:  cobra.ExactArgs(1),
	RunE:  runExcelRemove,
}

var excelMapCmd = &cobra.Command{
	Use:   "map [template-id]",
	Short: "Add a cell mapping to an excel template",
	Args:  cobra.ExactArgs(1),
	RunE:  runExcelMap,
}

// Flags for template add and mapping commands.
var (
	templateName    string
	mappingField    string
	mappingPage     int
	mappingX        float64
	mappingY        float64
	mappingFontSize float64
	mappingBold     bool
	mappingSheet    string
	mappingCell     string
)

func init() {
	formsAddCmd.Flags().StringVar(&templateName, "name", "", "Template name")
	excelAddCmd.Flags().StringVar(&templateName, "name", "", "Template name")

	formsMapCmd.Flags().StringVar(&mappingField, "field", "", "Customer field name, e.g. name or nric")
	formsMapCmd.Flags().IntVar(&mappingPage, "page", 1, "Page number")
	formsMapCmd.Flags().Float64Var(&mappingX, "x", 0, "X coordinate")
	formsMapCmd.Flags().Float64Var(&mappingY, "y", 0, "Y coordinate")
	formsMapCmd.Flags().Float64Var(&mappingFontSize, "font-size", 0, "Font size")
	formsMapCmd.Flags().BoolVar(&mappingBold, "bold", false, "Render bold")

	excelMapCmd.Flags().StringVar(&mappingField, "field", "", "Customer field name, e.g. name or nric")
	excelMapCmd.Flags().StringVar(&mappingSheet, "sheet", "", "Target sheet name")
	excelMapCmd.Flags().StringVar(&mappingCell, "cell", "", "Target cell, e.g. B12")

	templatesFormsCmd.AddCommand(formsListCmd)
	templatesFormsCmd.AddCommand(formsAddCmd)
	templatesFormsCmd.AddCommand(formsRemoveCmd)
	templatesFormsCmd.AddCommand(formsMapCmd)
	templatesFormsCmd.AddCommand(formsUnmapCmd)

	templatesExcelCmd.AddCommand(excelListCmd)
	templatesExcelCmd.AddCommand(excelAddCmd)
	templatesExcelCmd.AddCommand(excelRemoveCmd)
	templatesExcelCmd.AddCommand(excelMapCmd)

	templatesCmd.AddCommand(templatesFormsCmd)
	templatesCmd.AddCommand(templatesExcelCmd)
	rootCmd.AddCommand(templatesCmd)
}

func runFormsList(cmd *cobra.Command, _ []string) error {
	if templateStore == nil {
		return errors.New("template store not configured")
	}

	templates, err := templateStore.ListForms(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list form templates: %w", err)
	}

	if len(templates) == 0 {
		cmd.Println("No form templates.")
		return nil
	}

	cmd.Printf("Form templates (%d):\n\n", len(templates))
	for i := range templates {
		t := &templates[i]
		cmd.Printf("  %s\n", t.ID)
		cmd.Printf("    Name: %s\n", t.Name)
		cmd.Printf("    Mappings: %d\n", len(t.Mappings))
		cmd.Println()
	}
	return nil
}

func runFormsAdd(cmd *cobra.Command, _ []string) error {
	if templateStore == nil {
		return errors.New("template store not configured")
	}
	if templateName == "" {
		return errors.New("--name is required")
	}

	ctx := context.Background()
	now := time.Now()
	t := domain.FormTemplate{
		ID:        uuid.New().String(),
		Name:      templateName,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := templateStore.SaveForm(ctx, t); err != nil {
		return fmt.Errorf("failed to save form template: %w", err)
	}
	recordWrite(ctx, cmd, domain.EntityFormTemplate, domain.OpCreate, t.ID, t)

	cmd.Printf("Form template created: %s\n", t.ID)
	return nil
}

func runFormsRemove(cmd *cobra.Command, args []string) error {
	if templateStore == nil {
		return errors.New("template store not configured")
	}

	ctx := context.Background()
	if err := templateStore.DeleteForm(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to remove form template: %w", err)
	}
	recordWrite(ctx, cmd, domain.EntityFormTemplate, domain.OpDelete, args[0], nil)

	cmd.Printf("Removed form template: %s\n", args[0])
	return nil
}

func runFormsMap(cmd *cobra.Command, args []string) error {
	if templateStore == nil {
		return errors.New("template store not configured")
	}
	if mappingField == "" {
		return errors.New("--field is required")
	}

	ctx := context.Background()
	t, err := findFormTemplate(ctx, args[0])
	if err != nil {
		return err
	}

	m := domain.FieldMapping{
		ID:       uuid.New().String(),
		Field:    mappingField,
		Page:     mappingPage,
		X:        mappingX,
		Y:        mappingY,
		FontSize: mappingFontSize,
		Bold:     mappingBold,
	}
	t.AddMapping(m)
	t.UpdatedAt = time.Now()

	if err := templateStore.SaveForm(ctx, *t); err != nil {
		return fmt.Errorf("failed to save form template: %w", err)
	}
	recordWrite(ctx, cmd, domain.EntityFormTemplate, domain.OpUpdate, t.ID, *t)

	cmd.Printf("Mapping added: %s\n", m.ID)
	return nil
}

func runFormsUnmap(cmd *cobra.Command, args []string) error {
	if templateStore == nil {
		return errors.New("template store not configured")
	}

	ctx := context.Background()
	t, err := findFormTemplate(ctx, args[0])
	if err != nil {
		return err
	}

	if _, ok := t.Mappings[args[1]]; !ok {
		return fmt.Errorf("mapping not found: %s", args[1])
	}
	t.RemoveMapping(args[1])
	t.UpdatedAt = time.Now()

	if err := templateStore.SaveForm(ctx, *t); err != nil {
		return fmt.Errorf("failed to save form template: %w", err)
	}
	recordWrite(ctx, cmd, domain.EntityFormTemplate, domain.OpUpdate, t.ID, *t)

	cmd.Printf("Mapping removed: %s\n", args[1])
	return nil
}

// findFormTemplate looks a form template up by id.
func findFormTemplate(ctx context.Context, id string) (*domain.FormTemplate, error) {
	templates, err := templateStore.ListForms(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list form templates: %w", err)
	}
	for i := range templates {
		if domain.SameID(templates[i].ID, id) {
			return &templates[i], nil
		}
	}
	return nil, fmt.Errorf("form template not found: %s", id)
}

func runExcelList(cmd *cobra.Command, _ []string) error {
	if templateStore == nil {
		return errors.New("template store not configured")
	}

	templates, err := templateStore.ListExcel(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list excel templates: %w", err)
	}

	if len(templates) == 0 {
		cmd.Println("No excel templates.")
		return nil
	}

	cmd.Printf("Excel templates (%d):\n\n", len(templates))
	for i := range templates {
		t := &templates[i]
		cmd.Printf("  %s\n", t.ID)
		cmd.Printf("    Name: %s\n", t.Name)
		cmd.Printf("    Mappings: %d\n", len(t.Mappings))
		cmd.Println()
	}
	return nil
}

func runExcelAdd(cmd *cobra.Command, _ []string) error {
	if templateStore == nil {
		return errors.New("template store not configured")
	}
	if templateName == "" {
		return errors.New("--name is required")
	}

	ctx := context.Background()
	now := time.Now()
	t := domain.ExcelTemplate{
		ID:        uuid.New().String(),
		Name:      templateName,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := templateStore.SaveExcel(ctx, t); err != nil {
		return fmt.Errorf("failed to save excel template: %w", err)
	}
	recordWrite(ctx, cmd, domain.EntityExcelTemplate, domain.OpCreate, t.ID, t)

	cmd.Printf("Excel template created: %s\n", t.ID)
	return nil
}

func runExcelRemove(cmd *cobra.Command, args []string) error {
	if templateStore == nil {
		return errors.New("template store not configured")
	}

	ctx := context.Background()
	if err := templateStore.DeleteExcel(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to remove excel template: %w", err)
	}
	recordWrite(ctx, cmd, domain.EntityExcelTemplate, domain.OpDelete, args[0], nil)

	cmd.Printf("Removed excel template: %s\n", args[0])
	return nil
}

func runExcelMap(cmd *cobra.Command, args []string) error {
	if templateStore == nil {
		return errors.New("template store not configured")
	}
	if mappingField == "" {
		return errors.New("--field is required")
	}
	if mappingCell == "" {
		return errors.New("--cell is required")
	}

	ctx := context.Background()
	templates, err := templateStore.ListExcel(ctx)
	if err != nil {
		return fmt.Errorf("failed to list excel templates: %w", err)
	}
	var t *domain.ExcelTemplate
	for i := range templates {
		if domain.SameID(templates[i].ID, args[0]) {
			t = &templates[i]
			break
		}
	}
	if t == nil {
		return fmt.Errorf("excel template not found: %s", args[0])
	}

	m := domain.CellMapping{
		ID:    uuid.New().String(),
		Field: mappingField,
		Sheet: mappingSheet,
		Cell:  mappingCell,
	}
	t.AddMapping(m)
	t.UpdatedAt = time.Now()

	if err := templateStore.SaveExcel(ctx, *t); err != nil {
		return fmt.Errorf("failed to save excel template: %w", err)
	}
	recordWrite(ctx, cmd, domain.EntityExcelTemplate, domain.OpUpdate, t.ID, *t)

	cmd.Printf("Mapping added: %s\n", m.ID)
	return nil
}
