package classify

import "regexp"

// EGLDescriptor is one loader-config file naming a vendor library basename.
type EGLDescriptor struct {
	FileName string
	Library  string
}

// Vendor bundles everything specific to one driver brand.
type Vendor struct {
	// Name is exported as the GLX vendor selection value.
	Name        string
	Rules       RuleSet
	Descriptors []EGLDescriptor
}

// WithExtraRules returns a copy of v whose rules include extra.
func (v Vendor) WithExtraRules(extra Patterns) (Vendor, error) {
	if extra.IsEmpty() {
		return v, nil
	}
	rules, err := v.Rules.Extend(extra)
	if err != nil {
		return Vendor{}, err
	}
	v.Rules = rules
	return v, nil
}

// Library names listed from the driver package plus the host libraries the
// driver objects need at load time.
var nvidiaGeneric = []string{
	`libGLESv1_CM_nvidia\.so.*$`,
	`libGLESv2_nvidia\.so.*$`,
	`libglxserver_nvidia\.so.*$`,
	`libnvcuvid\.so.*$`,
	`libnvidia-allocator\.so.*$`,
	`libnvidia-cfg\.so.*$`,
	`libnvidia-compiler\.so.*$`,
	`libnvidia-eglcore\.so.*$`,
	`libnvidia-encode\.so.*$`,
	`libnvidia-fbc\.so.*$`,
	`libnvidia-glcore\.so.*$`,
	`libnvidia-glsi\.so.*$`,
	`libnvidia-glvkspirv\.so.*$`,
	`libnvidia-gpucomp\.so.*$`,
	`libnvidia-ml\.so.*$`,
	`libnvidia-ngx\.so.*$`,
	`libnvidia-nvvm\.so.*$`,
	`libnvidia-opencl\.so.*$`,
	`libnvidia-opticalflow\.so.*$`,
	`libnvidia-ptxjitcompiler\.so.*$`,
	`libnvidia-rtcore\.so.*$`,
	`libnvidia-tls\.so.*$`,
	`libnvidia-vulkan-producer\.so.*$`,
	`libnvidia-wayland-client\.so.*$`,
	`libnvoptix\.so.*$`,
	`libnvtegrahv\.so.*$`,
	// host dependencies
	`libdrm\.so.*$`,
	`libffi\.so.*$`,
	`libgbm\.so.*$`,
	`libexpat\.so.*$`,
	`libxcb-glx\.so.*$`,
	`libX11-xcb\.so.*$`,
	`libX11\.so.*$`,
	`libXext\.so.*$`,
	`libwayland-server\.so.*$`,
	`libwayland-client\.so.*$`,
}

var (
	nvidiaCUDA = []string{`libcudadebugger\.so.*$`, `libcuda\.so.*$`}
	nvidiaGLX  = []string{`libGLX_nvidia\.so.*$`}
	nvidiaEGL  = []string{
		`libEGL_nvidia\.so.*$`,
		`libnvidia-egl-wayland\.so.*$`,
		`libnvidia-egl-gbm\.so.*$`,
	}
)

func mustCompile(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// NVIDIA returns the default vendor profile.
func NVIDIA() Vendor {
	return Vendor{
		Name: "nvidia",
		Rules: RuleSet{
			Generic: mustCompile(nvidiaGeneric),
			GLX:     mustCompile(nvidiaGLX),
			CUDA:    mustCompile(nvidiaCUDA),
			EGL:     mustCompile(nvidiaEGL),
		},
		Descriptors: []EGLDescriptor{
			{FileName: "10_nvidia.json", Library: "libEGL_nvidia.so.0"},
			{FileName: "10_nvidia_wayland.json", Library: "libnvidia-egl-wayland.so.1"},
			{FileName: "15_nvidia_gbm.json", Library: "libnvidia-egl-gbm.so.1"},
		},
	}
}
