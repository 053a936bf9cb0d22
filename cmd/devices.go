package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/facescan/internal/capture"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List local cameras and the facing mode that would be selected",
	Long: `List V4L2 capture devices on this host and show which facing mode a
session would pick: the front camera when there is at most one, the rear
camera otherwise.`,
	RunE: runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
	devicesCmd.Flags().Bool("json", false, "Output as JSON")
}

// DevicesOutput is the JSON result of the devices command
type DevicesOutput struct {
	Devices    []capture.Device `json:"devices"`
	FacingMode string           `json:"facing_mode"`
	Camera     string           `json:"camera"`
}

func runDevices(cmd *cobra.Command, args []string) error {
	devices, err := capture.LocalDevices()
	if err != nil {
		return err
	}
	mode := capture.SelectFacingMode(devices)
	out := DevicesOutput{
		Devices:    devices,
		FacingMode: mode,
		Camera:     capture.CameraLabel(mode),
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(out)
	}

	if len(devices) == 0 {
		fmt.Println("No video devices found")
	} else {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DEVICE\tLABEL")
		fmt.Fprintln(w, "------\t-----")
		for _, d := range devices {
			fmt.Fprintf(w, "%s\t%s\n", d.DeviceID, d.Label)
		}
		w.Flush()
	}
	fmt.Printf("Facing mode: %s (%s camera)\n", out.FacingMode, out.Camera)
	return nil
}
