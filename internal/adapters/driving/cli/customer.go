package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/carcrm-cli/internal/core/domain"
	"github.com/custodia-labs/carcrm-cli/internal/core/ports/driven"
)

var customerCmd = &cobra.Command{
	Use:   "customer",
	Short: "Manage customer records",
	Long: `Add, list, edit and remove customer records.

Mutations are applied to the local store immediately and queued for
background push to Drive, so they work offline.

Examples:
  carcrm customer add --name "Tan Ah Kow" --phone 91234567
  carcrm customer list
  carcrm customer show <customer-id>
  carcrm customer set <customer-id> --deal-closed
  carcrm customer remove <customer-id>`,
	RunE: runCustomerList,
}

var customerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List customer records",
	RunE:  runCustomerList,
}

var customerShowCmd = &cobra.Command{
	Use:   "show [customer-id]",
	Short: "Show one customer record",
	Args:  cobra.ExactArgs(1),
	RunE:  runCustomerShow,
}

var customerAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a customer record",
	RunE:  runCustomerAdd,
}

var customerSetCmd = &cobra.Command{
	Use:   "set [customer-id]",
	Short: "Update fields on a customer record",
	Args:  cobra.ExactArgs(1),
	RunE:  runCustomerSet,
}

var customerRemoveCmd = &cobra.Command{
	Use:   "remove [customer-id]",
	Short: "Remove a customer record",
	Args:  cobra.ExactArgs(1),
	RunE:  runCustomerRemove,
}

// Flags shared by customer add and customer set.
var (
	customerName       string
	customerPhone      string
	customerEmail      string
	customerNRIC       string
	customerDOB        string
	customerOccupation string
	customerAddress    string
	customerAgreement  string
	customerNotes      string
	customerDealClosed bool
)

func addCustomerFieldFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&customerName, "name", "", "Customer name")
	cmd.Flags().StringVar(&customerPhone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&customerEmail, "email", "", "Email address")
	cmd.Flags().StringVar(&customerNRIC, "nric", "", "NRIC number")
	cmd.Flags().StringVar(&customerDOB, "dob", "", "Date of birth")
	cmd.Flags().StringVar(&customerOccupation, "occupation", "", "Occupation")
	cmd.Flags().StringVar(&customerAddress, "address", "", "Home address")
	cmd.Flags().StringVar(&customerAgreement, "agreement", "", "Sale agreement number")
	cmd.Flags().StringVar(&customerNotes, "notes", "", "Free-form notes")
	cmd.Flags().BoolVar(&customerDealClosed, "deal-closed", false, "Mark the deal as closed")
}

func init() {
	addCustomerFieldFlags(customerAddCmd)
	addCustomerFieldFlags(customerSetCmd)

	customerCmd.AddCommand(customerListCmd)
	customerCmd.AddCommand(customerShowCmd)
	customerCmd.AddCommand(customerAddCmd)
	customerCmd.AddCommand(customerSetCmd)
	customerCmd.AddCommand(customerRemoveCmd)
	rootCmd.AddCommand(customerCmd)
}

func runCustomerList(cmd *cobra.Command, _ []string) error {
	if customerStore == nil {
		return errors.New("customer store not configured")
	}

	ctx := context.Background()
	customers, err := customerStore.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list customers: %w", err)
	}

	if len(customers) == 0 {
		cmd.Println("No customer records.")
		cmd.Println("Add one with: carcrm customer add --name \"...\"")
		return nil
	}

	cmd.Printf("Customer records (%d):\n\n", len(customers))
	for i := range customers {
		c := &customers[i]
		cmd.Printf("  %s\n", c.ID)
		cmd.Printf("    Name: %s\n", c.Name)
		if c.Phone != "" {
			cmd.Printf("    Phone: %s\n", c.Phone)
		}
		if c.DealClosed {
			cmd.Println("    Deal: closed")
		}
		cmd.Println()
	}
	return nil
}

func runCustomerShow(cmd *cobra.Command, args []string) error {
	if customerStore == nil {
		return errors.New("customer store not configured")
	}

	c, err := customerStore.Get(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("customer not found: %w", err)
	}

	cmd.Printf("ID: %s\n", c.ID)
	cmd.Printf("Name: %s\n", c.Name)
	printIfSet(cmd, "Phone", c.Phone)
	printIfSet(cmd, "Email", c.Email)
	printIfSet(cmd, "NRIC", c.NRIC)
	printIfSet(cmd, "DOB", c.DOB)
	printIfSet(cmd, "Occupation", c.Occupation)
	printIfSet(cmd, "Address", c.Address)
	printIfSet(cmd, "Agreement", c.AgreementNumber)
	printIfSet(cmd, "Notes", c.Notes)
	if c.DealClosed {
		cmd.Println("Deal: closed")
	}
	if len(c.Checklist) > 0 {
		cmd.Println("Checklist:")
		for item, done := range c.Checklist {
			mark := " "
			if done {
				mark = "x"
			}
			cmd.Printf("  [%s] %s\n", mark, item)
		}
	}
	if c.FolderID != "" {
		cmd.Printf("Drive folder: %s\n", c.FolderID)
	}
	cmd.Printf("Created: %s\n", c.CreatedAt.Format(time.RFC3339))
	cmd.Printf("Updated: %s\n", c.UpdatedAt.Format(time.RFC3339))
	return nil
}

func printIfSet(cmd *cobra.Command, label, value string) {
	if value != "" {
		cmd.Printf("%s: %s\n", label, value)
	}
}

func runCustomerAdd(cmd *cobra.Command, _ []string) error {
	if customerStore == nil {
		return errors.New("customer store not configured")
	}
	if customerName == "" {
		return errors.New("--name is required")
	}

	ctx := context.Background()
	now := time.Now()

	c := domain.Customer{
		ID:              uuid.New().String(),
		Name:            customerName,
		Phone:           customerPhone,
		Email:           customerEmail,
		NRIC:            customerNRIC,
		DOB:             customerDOB,
		Occupation:      customerOccupation,
		Address:         customerAddress,
		AgreementNumber: customerAgreement,
		Notes:           customerNotes,
		DealClosed:      customerDealClosed,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if configStore != nil {
		c.ConsultantID = configStore.GetString(driven.ConfigKeyConsultantID)
		c.ConsultantName = configStore.GetString(driven.ConfigKeyConsultantTag)
	}

	if err := customerStore.Save(ctx, c); err != nil {
		return fmt.Errorf("failed to save customer: %w", err)
	}
	recordWrite(ctx, cmd, domain.EntityCustomer, domain.OpCreate, c.ID, c)

	cmd.Printf("Customer created: %s\n", c.ID)
	return nil
}

func runCustomerSet(cmd *cobra.Command, args []string) error {
	if customerStore == nil {
		return errors.New("customer store not configured")
	}

	ctx := context.Background()
	c, err := customerStore.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("customer not found: %w", err)
	}

	flags := cmd.Flags()
	applyIfChanged(flags.Changed("name"), &c.Name, customerName)
	applyIfChanged(flags.Changed("phone"), &c.Phone, customerPhone)
	applyIfChanged(flags.Changed("email"), &c.Email, customerEmail)
	applyIfChanged(flags.Changed("nric"), &c.NRIC, customerNRIC)
	applyIfChanged(flags.Changed("dob"), &c.DOB, customerDOB)
	applyIfChanged(flags.Changed("occupation"), &c.Occupation, customerOccupation)
	applyIfChanged(flags.Changed("address"), &c.Address, customerAddress)
	applyIfChanged(flags.Changed("agreement"), &c.AgreementNumber, customerAgreement)
	applyIfChanged(flags.Changed("notes"), &c.Notes, customerNotes)
	if flags.Changed("deal-closed") {
		c.DealClosed = customerDealClosed
	}
	c.UpdatedAt = time.Now()

	if err := customerStore.Save(ctx, *c); err != nil {
		return fmt.Errorf("failed to save customer: %w", err)
	}
	recordWrite(ctx, cmd, domain.EntityCustomer, domain.OpUpdate, c.ID, *c)

	cmd.Printf("Customer updated: %s\n", c.ID)
	return nil
}

func applyIfChanged(changed bool, dst *string, value string) {
	if changed {
		*dst = value
	}
}

func runCustomerRemove(cmd *cobra.Command, args []string) error {
	if customerStore == nil {
		return errors.New("customer store not configured")
	}

	ctx := context.Background()

	// Verify it exists before deleting so the user gets a clear error.
	c, err := customerStore.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("customer not found: %w", err)
	}

	if err := customerStore.Delete(ctx, c.ID); err != nil {
		return fmt.Errorf("failed to remove customer: %w", err)
	}
	recordWrite(ctx, cmd, domain.EntityCustomer, domain.OpDelete, c.ID, nil)

	cmd.Printf("Removed customer: %s (%s)\n", c.Name, c.ID)
	return nil
}

// recordWrite queues the applied mutation for background push. The
// local write is already committed, so a queue failure is reported but
// never fails the command.
func recordWrite(ctx context.Context, cmd *cobra.Command, entityType domain.EntityType, op domain.WriteOp, id string, payload any) {
	if writeQueue == nil {
		return
	}
	if err := writeQueue.Record(ctx, entityType, op, id, payload); err != nil {
		cmd.Printf("Warning: change saved locally but not queued for sync: %v\n", err)
	}
}
