package workspace

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/medsys/clinic/internal/domain/patient"
	"github.com/medsys/clinic/internal/domain/preferences"
	"github.com/medsys/clinic/internal/domain/prescription"
)

// View is one screen of the workspace.
type View int

const (
	ViewDashboard View = iota
	ViewPatients
	ViewPrescriptions
	ViewMedications
	ViewAlerts
	ViewProfile
)

type renderer func(c *Coordinator, w io.Writer) error

var views = map[View]struct {
	name   string
	title  string
	render renderer
}{
	ViewDashboard:     {"dashboard", "Dashboard", renderDashboard},
	ViewPatients:      {"patients", "Patients", renderPatients},
	ViewPrescriptions: {"prescriptions", "Prescriptions", renderPrescriptions},
	ViewMedications:   {"medications", "Medications", renderMedications},
	ViewAlerts:        {"alerts", "Expiry alerts", renderAlerts},
	ViewProfile:       {"profile", "Profile", renderProfile},
}

func (v View) String() string {
	if entry, ok := views[v]; ok {
		return entry.name
	}
	return fmt.Sprintf("View(%d)", int(v))
}

// Title is the heading shown above the view.
func (v View) Title() string { return views[v].title }

// ParseView resolves a view by its name.
func ParseView(name string) (View, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for v, entry := range views {
		if entry.name == name {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown view %q", name)
}

// SetView switches the active view.
func (c *Coordinator) SetView(v View) error {
	if _, ok := views[v]; !ok {
		return fmt.Errorf("unknown view %d", int(v))
	}
	c.mu.Lock()
	c.view = v
	c.mu.Unlock()
	return nil
}

func (c *Coordinator) View() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view
}

// Render writes the active view to w. Signed-out workspaces only show the
// sign-in hint.
func (c *Coordinator) Render(w io.Writer) error {
	if c.Session() == nil {
		_, err := fmt.Fprintln(w, "Not signed in. Run `medsys login` first.")
		return err
	}
	entry := views[c.View()]
	if _, err := fmt.Fprintf(w, "== %s ==\n", entry.title); err != nil {
		return err
	}
	return entry.render(c, w)
}

func table(w io.Writer, header string, rows func(tw *tabwriter.Writer)) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	rows(tw)
	return tw.Flush()
}

func renderDashboard(c *Coordinator, w io.Writer) error {
	d := c.Dashboard()
	return table(w, "Patients\tPrescriptions\tMedications\tLow stock", func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\n", d.Patients, d.Prescriptions, d.Medications, d.LowStock)
	})
}

func renderPatients(c *Coordinator, w io.Writer) error {
	today := c.Today()
	return table(w, "ID\tName\tCPF\tAge\tPhone", func(tw *tabwriter.Writer) {
		for _, p := range c.Snapshot().Patients {
			age := "-"
			if years, ok := p.Age(today); ok {
				age = fmt.Sprint(years)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Label(), p.CPF, age, p.Phone)
		}
	})
}

func renderPrescriptions(c *Coordinator, w io.Writer) error {
	s := c.Snapshot()
	idx := patient.NewIndex(s.Patients)
	return table(w, "Date\tPatient\tUsage\tItems\tDoctor", func(tw *tabwriter.Writer) {
		for _, rx := range s.Prescriptions {
			p, _ := idx.Lookup(rx.PatientID)
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", rx.Date, p.Label(), rx.UsageType, itemNames(rx.Items), rx.DoctorName)
		}
	})
}

func itemNames(items []prescription.Item) string {
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.Name)
	}
	return strings.Join(names, ", ")
}

func renderMedications(c *Coordinator, w io.Writer) error {
	return table(w, "Name\tCategory\tForm\tStock\tPrice\tStatus", func(tw *tabwriter.Writer) {
		for _, m := range c.Snapshot().Medications {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.2f\t%s\n", m.Name, m.Category, m.Form, m.Stock, m.Price, m.Status)
		}
	})
}

func renderAlerts(c *Coordinator, w io.Writer) error {
	rows := c.Alerts(c.now())
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No prescriptions expiring soon.")
		return err
	}
	return table(w, "Issued\tPatient\tExpires\tStatus", func(tw *tabwriter.Writer) {
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Prescription.Date, r.PatientLabel, r.ExpiresOn, r.Status)
		}
	})
}

func renderProfile(c *Coordinator, w io.Writer) error {
	s := c.Session()
	ctx, err := c.scope(context.Background())
	if err != nil {
		return err
	}
	doctor, err := preferences.DoctorDefaults(ctx, c.prefs)
	if err != nil {
		return err
	}
	return table(w, "Field\tValue", func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "Name\t%s\n", s.Name)
		fmt.Fprintf(tw, "E-mail\t%s\n", s.Email)
		fmt.Fprintf(tw, "Session expires\t%s\n", s.ExpiresAt.Format("2006-01-02 15:04"))
		fmt.Fprintf(tw, "Doctor\t%s\n", doctor.Name)
		fmt.Fprintf(tw, "License\t%s\n", doctor.License)
	})
}
