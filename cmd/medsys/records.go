package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/medsys/clinic/internal/domain"
	"github.com/medsys/clinic/internal/domain/evolution"
	"github.com/medsys/clinic/internal/domain/medication"
	"github.com/medsys/clinic/internal/domain/patient"
	"github.com/medsys/clinic/internal/domain/preferences"
	"github.com/medsys/clinic/internal/domain/prescription"
	"github.com/medsys/clinic/internal/platform/db"
	"github.com/medsys/clinic/internal/workspace"
	"github.com/medsys/clinic/pkg/civil"
)

// inWorkspace runs fn against a signed-in, loaded workspace.
func (c *cli) inWorkspace(cmd *cobra.Command, fn func(ctx context.Context, ws *workspace.Coordinator) error) error {
	return c.withApp(cmd, func(ctx context.Context, a *app) error {
		ws, err := c.openWorkspace(ctx, a)
		if err != nil {
			return err
		}
		return fn(ctx, ws)
	})
}

func (c *cli) viewCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "view <dashboard|patients|prescriptions|medications|alerts|profile>",
		Short:     "Show one workspace view",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"dashboard", "patients", "prescriptions", "medications", "alerts", "profile"},
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := workspace.ParseView(args[0])
			if err != nil {
				return err
			}
			return c.showView(cmd, v)
		},
	}
}

func (c *cli) alertsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alerts",
		Short: "List prescriptions that expired or expire soon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.showView(cmd, workspace.ViewAlerts)
		},
	}
}

func (c *cli) showView(cmd *cobra.Command, v workspace.View) error {
	return c.inWorkspace(cmd, func(_ context.Context, ws *workspace.Coordinator) error {
		if err := ws.SetView(v); err != nil {
			return err
		}
		return ws.Render(c.out)
	})
}

func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.Invalid("invalid %s id: %s", kind, raw)
	}
	return id, nil
}

// -- patients --

func (c *cli) patientCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "patient", Short: "Manage patients"}

	add := &cobra.Command{
		Use:   "add",
		Short: "Register a patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := &patient.Patient{}
			if err := applyPatientFlags(cmd, p); err != nil {
				return err
			}
			return c.inWorkspace(cmd, func(ctx context.Context, ws *workspace.Coordinator) error {
				if err := ws.CreatePatient(ctx, p); err != nil {
					return err
				}
				fmt.Fprintln(c.out, p.ID)
				return nil
			})
		},
	}
	addPatientFlags(add)

	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a patient; unset flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("patient", args[0])
			if err != nil {
				return err
			}
			return c.inWorkspace(cmd, func(ctx context.Context, ws *workspace.Coordinator) error {
				var current *patient.Patient
				for _, p := range ws.Snapshot().Patients {
					if p.ID == id {
						current = p
					}
				}
				if current == nil {
					return domain.NotFound("patient")
				}
				edited := *current
				if err := applyPatientFlags(cmd, &edited); err != nil {
					return err
				}
				return ws.UpdatePatient(ctx, &edited)
			})
		},
	}
	addPatientFlags(edit)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a patient with their prescriptions and notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("patient", args[0])
			if err != nil {
				return err
			}
			return c.inWorkspace(cmd, func(ctx context.Context, ws *workspace.Coordinator) error {
				deleted, err := ws.DeletePatient(ctx, id)
				if err == nil && !deleted {
					fmt.Fprintln(c.out, "Nothing deleted.")
				}
				return err
			})
		},
	}

	cmd.AddCommand(add, edit, del)
	return cmd
}

func addPatientFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("name", "", "Full name")
	f.String("cpf", "", "CPF, with or without punctuation")
	f.String("cns", "", "National health card number")
	f.String("birth-date", "", "Birth date, YYYY-MM-DD (empty clears it)")
	f.String("address", "", "Address")
	f.String("phone", "", "Phone")
}

// applyPatientFlags copies the flags the user set onto p.
func applyPatientFlags(cmd *cobra.Command, p *patient.Patient) error {
	f := cmd.Flags()
	set := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	set("name", &p.Name)
	set("cpf", &p.CPF)
	set("cns", &p.CNS)
	set("address", &p.Address)
	set("phone", &p.Phone)
	if f.Changed("birth-date") {
		raw, _ := f.GetString("birth-date")
		p.BirthDate = civil.Date{}
		if strings.TrimSpace(raw) != "" {
			d, err := civil.Parse(raw)
			if err != nil {
				return domain.Invalid("birth date must be YYYY-MM-DD")
			}
			p.BirthDate = d
		}
	}
	return nil
}

// -- medications --

func (c *cli) medicationCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "medication", Short: "Manage the medication inventory"}

	add := &cobra.Command{
		Use:   "add",
		Short: "Add a medication",
		RunE: func(cmd *cobra.Command, args []string) error {
			m := &medication.Medication{Category: medication.DefaultCategory, Form: medication.DefaultForm}
			applyMedicationFlags(cmd, m)
			return c.inWorkspace(cmd, func(ctx context.Context, ws *workspace.Coordinator) error {
				if err := ws.CreateMedication(ctx, m); err != nil {
					return err
				}
				fmt.Fprintln(c.out, m.ID)
				return nil
			})
		},
	}
	addMedicationFlags(add)

	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a medication; unset flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("medication", args[0])
			if err != nil {
				return err
			}
			return c.inWorkspace(cmd, func(ctx context.Context, ws *workspace.Coordinator) error {
				var current *medication.Medication
				for _, m := range ws.Snapshot().Medications {
					if m.ID == id {
						current = m
					}
				}
				if current == nil {
					return domain.NotFound("medication")
				}
				edited := *current
				applyMedicationFlags(cmd, &edited)
				return ws.UpdateMedication(ctx, &edited)
			})
		},
	}
	addMedicationFlags(edit)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a medication from the inventory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("medication", args[0])
			if err != nil {
				return err
			}
			return c.inWorkspace(cmd, func(ctx context.Context, ws *workspace.Coordinator) error {
				deleted, err := ws.DeleteMedication(ctx, id)
				if err == nil && !deleted {
					fmt.Fprintln(c.out, "Nothing deleted.")
				}
				return err
			})
		},
	}

	cmd.AddCommand(add, edit, del)
	return cmd
}

func addMedicationFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("name", "", "Name")
	f.String("description", "", "Description or dosage")
	f.String("category", medication.DefaultCategory, "Category")
	f.String("form", medication.DefaultForm, "Pharmaceutical form")
	f.Int("stock", 0, "Units in stock")
	f.Float64("price", 0, "Unit price")
}

func applyMedicationFlags(cmd *cobra.Command, m *medication.Medication) {
	f := cmd.Flags()
	for name, dst := range map[string]*string{
		"name":        &m.Name,
		"description": &m.Description,
		"category":    &m.Category,
		"form":        &m.Form,
	} {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	if f.Changed("stock") {
		m.Stock, _ = f.GetInt("stock")
	}
	if f.Changed("price") {
		m.Price, _ = f.GetFloat64("price")
	}
}

// -- prescriptions and notes --

// parseItem reads "name:dosage:quantity"; dosage and quantity are optional.
func parseItem(raw string) prescription.Item {
	parts := strings.SplitN(raw, ":", 3)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return prescription.Item{
		Name:     strings.TrimSpace(parts[0]),
		Dosage:   strings.TrimSpace(parts[1]),
		Quantity: strings.TrimSpace(parts[2]),
	}
}

func (c *cli) prescriptionCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "prescription", Short: "Write prescriptions"}

	var (
		patientID, name, cpf, date string
		location, usage            string
		doctor, license            string
		items                      []string
	)
	save := &cobra.Command{
		Use:   "save",
		Short: "Save a prescription; an unknown cpf registers the patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			d := prescription.Draft{
				Patient:       patient.Patient{Name: name, CPF: cpf},
				Location:      location,
				UsageType:     usage,
				DoctorName:    doctor,
				DoctorLicense: license,
			}
			if patientID != "" {
				id, err := parseID("patient", patientID)
				if err != nil {
					return err
				}
				d.PatientID = id
			}
			if date != "" {
				parsed, err := civil.Parse(date)
				if err != nil {
					return domain.Invalid("date must be YYYY-MM-DD")
				}
				d.Date = parsed
			}
			for _, raw := range items {
				d.Items = append(d.Items, parseItem(raw))
			}

			return c.inWorkspace(cmd, func(ctx context.Context, ws *workspace.Coordinator) error {
				res, err := ws.SavePrescription(ctx, d)
				if err != nil {
					return err
				}
				if res.PatientCreated {
					fmt.Fprintf(c.out, "Registered patient %s (%s).\n", res.Patient.Label(), res.Patient.ID)
				}
				if n := len(res.Medications); n > 0 {
					names := make([]string, 0, n)
					for _, m := range res.Medications {
						names = append(names, m.Name)
					}
					fmt.Fprintf(c.out, "Added to inventory: %s.\n", strings.Join(names, ", "))
				}
				fmt.Fprintln(c.out, res.Prescription.ID)
				return nil
			})
		},
	}
	f := save.Flags()
	f.StringVar(&patientID, "patient-id", "", "Existing patient id")
	f.StringVar(&name, "name", "", "Patient name, when not using --patient-id")
	f.StringVar(&cpf, "cpf", "", "Patient cpf, when not using --patient-id")
	f.StringVar(&date, "date", "", "Issue date, YYYY-MM-DD (default today)")
	f.StringVar(&location, "location", "", "Where the prescription was issued")
	f.StringVar(&usage, "usage", prescription.UsageOral, "Usage type: oral, continuous or topical")
	f.StringVar(&doctor, "doctor", "", "Doctor name (default from preferences)")
	f.StringVar(&license, "license", "", "Doctor license (default from preferences)")
	f.StringArrayVar(&items, "item", nil, "Item as name:dosage:quantity; repeatable")

	cmd.AddCommand(save)
	return cmd
}

func (c *cli) evolutionCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "evolution", Short: "Write clinical-evolution notes"}

	var patientID, content, date string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a note to a patient's record",
		RunE: func(cmd *cobra.Command, args []string) error {
			e := &evolution.Evolution{Content: content}
			if patientID != "" {
				id, err := parseID("patient", patientID)
				if err != nil {
					return err
				}
				e.PatientID = id
			}
			if date != "" {
				parsed, err := civil.Parse(date)
				if err != nil {
					return domain.Invalid("date must be YYYY-MM-DD")
				}
				e.Date = parsed
			}
			return c.inWorkspace(cmd, func(ctx context.Context, ws *workspace.Coordinator) error {
				if err := ws.SaveEvolution(ctx, e); err != nil {
					return err
				}
				fmt.Fprintln(c.out, e.ID)
				return nil
			})
		},
	}
	add.Flags().StringVar(&patientID, "patient-id", "", "Patient id")
	add.Flags().StringVar(&content, "content", "", "Note text")
	add.Flags().StringVar(&date, "date", "", "Date, YYYY-MM-DD (default today)")

	cmd.AddCommand(add)
	return cmd
}

// -- preferences --

func (c *cli) prefsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "prefs", Short: "Doctor defaults printed on prescriptions and notes"}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <doctor_name|doctor_license> <value>",
		Short: "Set a preference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if !preferences.Editable(key) {
				return domain.Invalid("unknown preference %q", key)
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				s, err := c.session(ctx, a)
				if err != nil {
					return err
				}
				if err := a.prefs.Set(db.WithOwner(ctx, s.UserID), key, strings.TrimSpace(value)); err != nil {
					return err
				}
				fmt.Fprintf(c.out, "%s saved.\n", key)
				return nil
			})
		},
	})
	return cmd
}
