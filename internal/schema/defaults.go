package schema

// DefaultDocument is the commented scaffold written by Init. It demonstrates
// one setting of each field type.
const DefaultDocument = `# build_settings.yaml
version: "1.0"

build_settings:
  # range sample
  - id: device_type       # Unique identifier for the setting
    label: "Device Type"  # User-friendly label for the setting on the UI
    value: "type"         # Fragment used in output file names
    define: DEVICE_TYPE   # define emitted into the generated header
    description: "Device type number (4-32). Each number represents a specific hardware variant."
    field_type: range
    format: number
    validation:
      min: 4
      max: 32

  # select sample
  - id: device_mode
    label: "Device Mode"
    value: "mode"
    description: "Operating mode that determines device behavior and available features"
    field_type: select
    format: string
    options:
      - label: "GPIO_EN"
        value: "GPIO"
        define: "DEVICE_MODE_GPIO"
        description: "GPIO driven mode"

      - label: "adc_ext"
        value: "ADC_EXT"
        define: "DEVICE_MODE_ADC_EXT"
        description: "External ADC mode"

  # checkbox_group sample
  - id: languages
    label: "Languages"
    value: "lang"
    description: "Supported interface languages. At least one language must be selected."
    field_type: checkbox_group
    format: string[]
    min_selected: 1
    options:
      - label: "English"
        value: "en"
        define: "LANG_EN"
        description: "English language support"

      - label: "Armenian"
        value: "ar"
        define: "LANG_AR"
        description: "Armenian language support"

      - label: "Kazakh"
        value: "kz"
        define: "LANG_KZ"
        description: "Kazakh language support"
`
